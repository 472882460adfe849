package geom

import (
	"math"
	"testing"
)

func square(x0, y0, size float64) Polygon {
	return Polygon{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}}
}

func TestPolygonArea(t *testing.T) {
	if a := square(0, 0, 2).Area(); math.Abs(a-4) > 1e-12 {
		t.Errorf("area = %f, want 4", a)
	}
	tri := Polygon{{0, 0}, {1, 0}, {0, 1}}
	if a := tri.Area(); math.Abs(a-0.5) > 1e-12 {
		t.Errorf("area = %f, want 0.5", a)
	}
}

func TestPolygonCentroid(t *testing.T) {
	c := square(0, 0, 2).Centroid()
	if math.Abs(c[0]-1) > 1e-12 || math.Abs(c[1]-1) > 1e-12 {
		t.Errorf("centroid = %v, want (1,1)", c)
	}
}

func TestPolygonIntersect_Overlapping(t *testing.T) {
	a := square(0, 0, 2)
	b := square(1, 1, 2)
	got := a.Intersect(b)
	if got == nil {
		t.Fatal("expected intersection")
	}
	if area := got.Area(); math.Abs(area-1) > 1e-9 {
		t.Errorf("intersection area = %f, want 1", area)
	}
}

func TestPolygonIntersect_Disjoint(t *testing.T) {
	a := square(0, 0, 1)
	b := square(5, 5, 1)
	if got := a.Intersect(b); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestPolygonIntersect_PointTouchIsNil(t *testing.T) {
	// Squares sharing exactly one corner: zero-area contact counts as
	// no intersection.
	a := square(0, 0, 1)
	b := square(1, 1, 1)
	if got := a.Intersect(b); got != nil {
		t.Errorf("expected nil for point contact, got %v", got)
	}
}

func TestPolygonIntersect_OrientationInsensitive(t *testing.T) {
	a := square(0, 0, 2)
	// Same clip square wound clockwise.
	b := Polygon{{1, 1}, {1, 3}, {3, 3}, {3, 1}}
	got := a.Intersect(b)
	if got == nil {
		t.Fatal("expected intersection")
	}
	if area := got.Area(); math.Abs(area-1) > 1e-9 {
		t.Errorf("intersection area = %f, want 1", area)
	}
}

func TestPolygonIntersect_Contained(t *testing.T) {
	outer := square(0, 0, 10)
	inner := square(4, 4, 1)
	got := inner.Intersect(outer)
	if got == nil {
		t.Fatal("expected intersection")
	}
	if area := got.Area(); math.Abs(area-1) > 1e-9 {
		t.Errorf("area = %f, want 1", area)
	}
}
