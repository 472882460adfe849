package geom

import "math"

// headingPadDeg absorbs camera mount alignment error when converting
// pixel columns to compass sectors.
const headingPadDeg = 10.0

// Sector is an angular interval on the compass, centered on Heading
// (degrees, 0 = north) with the given total Width.
type Sector struct {
	Heading float64
	Width   float64
}

// HeadingRange converts a segment's pixel column span into the compass
// sector it covers for a camera facing centralHeading with the given
// horizontal field of view.
func HeadingRange(centralHeading, fov float64, minX, maxX, imgWidth int) Sector {
	center := float64(minX+maxX) / 2
	heading := math.Mod(centralHeading+center/float64(imgWidth)*fov-fov/2, 360)
	if heading < 0 {
		heading += 360
	}
	width := math.Ceil(float64(maxX-minX)/float64(imgWidth)*fov + headingPadDeg)
	return Sector{Heading: heading, Width: width}
}

func (s Sector) start() float64 {
	v := math.Mod(s.Heading-s.Width/2, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// Overlaps reports whether two sectors intersect, handling wraparound
// at 360. Intervals are treated as closed; touching sectors overlap.
func (s Sector) Overlaps(o Sector) bool {
	// Rotate the frame so s starts at 0, then compare linearly.
	oStart := math.Mod(o.start()-s.start()+720, 360)
	return oStart <= s.Width || oStart+o.Width >= 360
}

// Union returns the smallest sector covering both inputs. Computed in a
// rotated frame anchored at the first interval's start so wraparound
// does not split the result.
func (s Sector) Union(o Sector) Sector {
	base := s.start()
	oStart := math.Mod(o.start()-base+720, 360)
	start, end := 0.0, s.Width
	if oStart+o.Width >= 360 {
		// o wraps behind the anchor; place it on the negative side.
		oStart -= 360
	}
	if oStart < start {
		start = oStart
	}
	if oStart+o.Width > end {
		end = oStart + o.Width
	}
	width := end - start
	heading := math.Mod(base+start+width/2, 360)
	if heading < 0 {
		heading += 360
	}
	return Sector{Heading: heading, Width: width}
}
