package classifier

import (
	"context"
	"errors"
	"log"

	"github.com/openfirewatch/firewatch/internal/imgproc"
)

// DetectDiff classifies the difference between the current frame and
// the previous one at the same heading, using a model trained on diff
// imagery. Motionless haze cancels out in the diff; fresh smoke does
// not. Frames with no usable prior are skipped, not failed.
type DetectDiff struct {
	Inner *HistThreshold
}

func NewDetectDiff(inner *HistThreshold) *DetectDiff {
	return &DetectDiff{Inner: inner}
}

func (p *DetectDiff) Detect(ctx context.Context, req Request) (*Result, error) {
	if req.FetchPrior == nil {
		return &Result{}, nil
	}
	prev, err := req.FetchPrior(ctx)
	if err != nil {
		log.Printf("[Classifier] no prior frame for %s heading %d: %v", req.CameraID, req.Heading, err)
		return &Result{}, nil
	}

	dx, dy := 0, 0
	adx, ady, err := imgproc.AlignTranslation(prev, req.Image)
	if err == nil {
		dx, dy = adx, ady
	} else if !errors.Is(err, imgproc.ErrNoAlignment) {
		return nil, err
	}

	diffReq := req
	diffReq.Image = imgproc.DiffImages(req.Image, imgproc.Translate(prev, dx, dy))
	return p.Inner.Detect(ctx, diffReq)
}
