package geom

import (
	"math"

	"github.com/openfirewatch/firewatch/internal/data"
)

// viewshedReachDeg is the leg length of the viewshed triangle in
// degrees of latitude, roughly 40 miles.
const viewshedReachDeg = 0.6

// RecentWindowSeconds bounds how old another camera's detection may be
// to still corroborate a new candidate.
const RecentWindowSeconds = 15 * 60

// ViewshedTriangle approximates the ground area visible in the given
// sector as an isoceles triangle with the apex at the camera.
func ViewshedTriangle(lat, lon float64, sector Sector) Polygon {
	half := sector.Width / 2
	lonScale := math.Cos(lat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	point := func(headingDeg float64) [2]float64 {
		rad := headingDeg * math.Pi / 180
		return [2]float64{
			lat + viewshedReachDeg*math.Cos(rad),
			lon + viewshedReachDeg*math.Sin(rad)/lonScale,
		}
	}
	return Polygon{
		{lat, lon},
		point(sector.Heading - half),
		point(sector.Heading + half),
	}
}

// IntersectLand clips the triangle against the coastline mask. Returns
// nil when the visible sector is entirely over water.
func IntersectLand(tri Polygon, landMask Polygon) Polygon {
	if len(landMask) == 0 {
		return tri
	}
	return tri.Intersect(landMask)
}

// Intersection is the result of corroborating a candidate triangle
// against recent detections from other cameras.
type Intersection struct {
	Polygon        Polygon
	SourcePolygons []Polygon
}

// IntersectRecentDetections intersects the candidate triangle with
// every recent detection polygon. When any intersect, the confirmed
// polygon is the accumulated intersection and the source polygons are
// the candidate plus each contributing detection's sources.
func IntersectRecentDetections(tri Polygon, recent []data.Detection) Intersection {
	result := Intersection{Polygon: tri, SourcePolygons: []Polygon{tri}}
	for _, d := range recent {
		other := Polygon(d.Polygon)
		inter := result.Polygon.Intersect(other)
		if inter == nil {
			continue
		}
		result.Polygon = inter
		if len(d.SourcePolygons) > 0 {
			for _, sp := range d.SourcePolygons {
				result.SourcePolygons = append(result.SourcePolygons, Polygon(sp))
			}
		} else {
			result.SourcePolygons = append(result.SourcePolygons, other)
		}
	}
	return result
}

// MatchIgnoredView returns the first ignored view whose angular
// interval overlaps the candidate sector for this camera, or nil.
func MatchIgnoredView(views []data.IgnoredView, cameraID string, sector Sector) *data.IgnoredView {
	for i := range views {
		v := &views[i]
		if v.CameraID != cameraID {
			continue
		}
		ignored := Sector{Heading: v.HeadingCenter, Width: v.AngularWidth}
		if ignored.Overlaps(sector) {
			return v
		}
	}
	return nil
}
