package classifier

import (
	"context"
	"image"
)

// Request carries one fetched frame through a detection policy.
type Request struct {
	CameraID  string
	Heading   int
	Timestamp int64
	Image     image.Image
	ROI       image.Rectangle

	// Stateless disables score recording and the historical filter
	// (replay and test runs).
	Stateless bool

	// FetchPrior loads the previous frame for the same camera and
	// heading. Policies that difference frames require it; others
	// ignore it. May be nil.
	FetchPrior func(ctx context.Context) (image.Image, error)
}

// FireSegment is the winning segment after filtering, with the
// historical context that produced its adjusted score.
type FireSegment struct {
	Segment
	AdjScore float64
	HistAvg  float64
	HistMax  float64
	HistN    int
}

// Result is a policy verdict. Fire is nil when nothing qualified;
// Segments holds every scored tile for recording and diagnostics.
type Result struct {
	Fire     *FireSegment
	Segments []Segment
}

// Policy decides whether a frame contains smoke.
type Policy interface {
	Detect(ctx context.Context, req Request) (*Result, error)
}
