package geom

import (
	"math"
	"testing"

	"github.com/openfirewatch/firewatch/internal/data"
)

func TestViewshedTriangle(t *testing.T) {
	tri := ViewshedTriangle(34.0, -118.0, Sector{Heading: 0, Width: 30})
	if len(tri) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(tri))
	}
	if tri[0][0] != 34.0 || tri[0][1] != -118.0 {
		t.Errorf("apex = %v, want camera location", tri[0])
	}
	// Both legs extend north of the camera for a north-facing sector.
	for _, v := range tri[1:] {
		if v[0] <= 34.0 {
			t.Errorf("leg endpoint %v not north of camera", v)
		}
	}
	// Legs are symmetric about the heading in longitude.
	dLon1 := tri[1][1] - (-118.0)
	dLon2 := tri[2][1] - (-118.0)
	if math.Abs(dLon1+dLon2) > 1e-9 {
		t.Errorf("legs not symmetric: %f vs %f", dLon1, dLon2)
	}
}

func TestIntersectLand(t *testing.T) {
	tri := ViewshedTriangle(34.0, -118.0, Sector{Heading: 0, Width: 30})

	// No mask configured passes the triangle through.
	if got := IntersectLand(tri, nil); got.Area() != tri.Area() {
		t.Error("empty mask should be a no-op")
	}

	// A mask far from the triangle rejects it.
	far := Polygon{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if got := IntersectLand(tri, far); got != nil {
		t.Errorf("expected nil for off-land viewshed, got %v", got)
	}

	// A mask containing the triangle keeps it.
	wide := Polygon{{30, -120}, {38, -120}, {38, -114}, {30, -114}}
	if got := IntersectLand(tri, wide); got == nil {
		t.Error("expected triangle to survive containing mask")
	}
}

func TestIntersectRecentDetections_NoMatches(t *testing.T) {
	tri := ViewshedTriangle(34.0, -118.0, Sector{Heading: 0, Width: 30})
	got := IntersectRecentDetections(tri, nil)
	if got.Polygon.Area() != tri.Area() {
		t.Error("polygon should be the candidate triangle")
	}
	if len(got.SourcePolygons) != 1 {
		t.Errorf("expected 1 source polygon, got %d", len(got.SourcePolygons))
	}
}

func TestIntersectRecentDetections_AccumulatesSources(t *testing.T) {
	tri := ViewshedTriangle(34.0, -118.0, Sector{Heading: 0, Width: 30})
	// A second camera east of the first looking west across the same
	// area.
	other := ViewshedTriangle(34.05, -117.6, Sector{Heading: 270, Width: 30})
	if tri.Intersect(other) == nil {
		t.Fatal("fixture triangles must overlap")
	}

	recent := []data.Detection{
		{CameraID: "cam-east", Polygon: [][2]float64(other)},
		// Distant detection must not contribute.
		{CameraID: "cam-far", Polygon: [][2]float64(Polygon{{0, 0}, {1, 0}, {0, 1}})},
	}
	got := IntersectRecentDetections(tri, recent)

	if len(got.SourcePolygons) != 2 {
		t.Fatalf("expected candidate + 1 contributor, got %d", len(got.SourcePolygons))
	}
	if got.Polygon.Area() >= tri.Area() {
		t.Error("intersection should be smaller than the candidate")
	}
}

func TestMatchIgnoredView(t *testing.T) {
	views := []data.IgnoredView{
		{CameraID: "a-n-mobo-c", HeadingCenter: 5, AngularWidth: 21},
		{CameraID: "other-cam", HeadingCenter: 180, AngularWidth: 40},
	}

	// Candidate sector overlapping the known glare sector.
	if v := MatchIgnoredView(views, "a-n-mobo-c", Sector{Heading: 10, Width: 30}); v == nil {
		t.Error("expected match for overlapping sector")
	}
	// Same sector on a different camera must not match.
	if v := MatchIgnoredView(views, "b-cam", Sector{Heading: 10, Width: 30}); v != nil {
		t.Error("unexpected match across cameras")
	}
	// Disjoint sector on the same camera must not match.
	if v := MatchIgnoredView(views, "a-n-mobo-c", Sector{Heading: 120, Width: 20}); v != nil {
		t.Error("unexpected match for disjoint sector")
	}
}
