package classifier

import (
	"context"

	"github.com/openfirewatch/firewatch/internal/imgproc"
)

// DetectAlways reports a fire in the center of every frame. Exercises
// the downstream pipeline end to end without a scorer service.
type DetectAlways struct{}

func (DetectAlways) Detect(_ context.Context, req Request) (*Result, error) {
	b := req.Image.Bounds()
	x0, x1 := imgproc.RangeFromCenter((b.Min.X+b.Max.X)/2, imgproc.TileSize, b.Min.X, b.Max.X)
	y0, y1 := imgproc.RangeFromCenter((b.Min.Y+b.Max.Y)/2, imgproc.TileSize, b.Min.Y, b.Max.Y)
	seg := Segment{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1, Score: 1}
	return &Result{
		Fire:     &FireSegment{Segment: seg, AdjScore: 1},
		Segments: []Segment{seg},
	}, nil
}

// DetectNever drops every frame. Useful for soak-testing fetch and
// scheduling without generating detections.
type DetectNever struct{}

func (DetectNever) Detect(context.Context, Request) (*Result, error) {
	return &Result{}, nil
}

var (
	_ Policy = DetectAlways{}
	_ Policy = DetectNever{}
	_ Policy = (*HistThreshold)(nil)
)
