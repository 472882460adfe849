package geom

import "math"

// Polygon is a closed ring of [lat, lon] vertices, not repeated at the
// end. All polygons produced by this package (viewshed triangles and
// their clips) are convex.
type Polygon [][2]float64

// Area returns the absolute area of the polygon in square degrees via
// the shoelace formula.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return math.Abs(sum) / 2
}

// Centroid returns the area centroid. Degenerate polygons fall back to
// the vertex mean.
func (p Polygon) Centroid() [2]float64 {
	if len(p) == 0 {
		return [2]float64{}
	}
	a := 0.0
	var cx, cy float64
	for i := range p {
		j := (i + 1) % len(p)
		cross := p[i][0]*p[j][1] - p[j][0]*p[i][1]
		a += cross
		cx += (p[i][0] + p[j][0]) * cross
		cy += (p[i][1] + p[j][1]) * cross
	}
	if math.Abs(a) < 1e-12 {
		var sx, sy float64
		for _, v := range p {
			sx += v[0]
			sy += v[1]
		}
		return [2]float64{sx / float64(len(p)), sy / float64(len(p))}
	}
	return [2]float64{cx / (3 * a), cy / (3 * a)}
}

// Intersect clips p against the convex polygon clip using
// Sutherland-Hodgman. A zero-area (point or line) result counts as no
// intersection and returns nil.
func (p Polygon) Intersect(clip Polygon) Polygon {
	if len(p) < 3 || len(clip) < 3 {
		return nil
	}
	// Orient the clip counterclockwise so inside tests are consistent.
	c := clip.ccw()
	out := append(Polygon{}, p...)
	for i := range c {
		a := c[i]
		b := c[(i+1)%len(c)]
		out = clipEdge(out, a, b)
		if len(out) == 0 {
			return nil
		}
	}
	if out.Area() < 1e-12 {
		return nil
	}
	return out
}

func (p Polygon) signedArea() float64 {
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return sum / 2
}

func (p Polygon) ccw() Polygon {
	if p.signedArea() >= 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

func clipEdge(subject Polygon, a, b [2]float64) Polygon {
	inside := func(pt [2]float64) bool {
		return (b[0]-a[0])*(pt[1]-a[1])-(b[1]-a[1])*(pt[0]-a[0]) >= 0
	}
	intersect := func(p1, p2 [2]float64) [2]float64 {
		d1 := [2]float64{p2[0] - p1[0], p2[1] - p1[1]}
		d2 := [2]float64{b[0] - a[0], b[1] - a[1]}
		denom := d1[0]*d2[1] - d1[1]*d2[0]
		if math.Abs(denom) < 1e-15 {
			return p2
		}
		t := ((a[0]-p1[0])*d2[1] - (a[1]-p1[1])*d2[0]) / denom
		return [2]float64{p1[0] + t*d1[0], p1[1] + t*d1[1]}
	}

	var out Polygon
	for i := range subject {
		cur := subject[i]
		prev := subject[(i+len(subject)-1)%len(subject)]
		curIn, prevIn := inside(cur), inside(prev)
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, intersect(prev, cur), cur)
		case !curIn && prevIn:
			out = append(out, intersect(prev, cur))
		}
	}
	return out
}
