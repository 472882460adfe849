package classifier

import (
	"context"
	"image"
	"log"

	"github.com/openfirewatch/firewatch/internal/imgproc"
)

// DetectMulti runs a main policy over the full region of interest and,
// when it fires, asks each verifier policy to confirm on a single tile
// centered on the candidate. Every verifier must score above base for
// the candidate to survive. Verifiers see a Stateless request so they
// neither record scores nor apply history.
type DetectMulti struct {
	Main      Policy
	Verifiers []Policy
}

func NewDetectMulti(main Policy, verifiers ...Policy) *DetectMulti {
	return &DetectMulti{Main: main, Verifiers: verifiers}
}

func (p *DetectMulti) Detect(ctx context.Context, req Request) (*Result, error) {
	result, err := p.Main.Detect(ctx, req)
	if err != nil || result.Fire == nil {
		return result, err
	}

	fire := result.Fire
	b := req.Image.Bounds()
	x0, x1 := imgproc.RangeFromCenter((fire.MinX+fire.MaxX)/2, imgproc.TileSize, b.Min.X, b.Max.X)
	y0, y1 := imgproc.RangeFromCenter((fire.MinY+fire.MaxY)/2, imgproc.TileSize, b.Min.Y, b.Max.Y)

	verifyReq := req
	verifyReq.ROI = image.Rect(x0, y0, x1, y1)
	verifyReq.Stateless = true

	for i, v := range p.Verifiers {
		vr, err := v.Detect(ctx, verifyReq)
		if err != nil {
			return nil, err
		}
		if vr.Fire == nil {
			log.Printf("[Classifier] verifier %d vetoed %s heading %d at (%d,%d)",
				i, req.CameraID, req.Heading, fire.MinX, fire.MinY)
			return &Result{Segments: result.Segments}, nil
		}
	}
	return result, nil
}
