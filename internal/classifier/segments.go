package classifier

import (
	"context"
	"image"
	"sort"

	"github.com/openfirewatch/firewatch/internal/imgproc"
	"github.com/openfirewatch/firewatch/internal/metrics"
)

// Segment is one scored tile, in absolute image coordinates.
type Segment struct {
	MinX  int
	MinY  int
	MaxX  int
	MaxY  int
	Score float64
}

// Rect returns the segment bounds as an image.Rectangle.
func (s Segment) Rect() image.Rectangle {
	return image.Rect(s.MinX, s.MinY, s.MaxX, s.MaxY)
}

// SegmentAndClassify tiles the region of interest into overlapping
// squares of the model's input size and scores each tile. The ROI is
// clamped to the image bounds; a region too small for a single tile
// returns an empty list. Results are sorted by descending score.
func SegmentAndClassify(ctx context.Context, scorer Scorer, img image.Image, roi image.Rectangle) ([]Segment, error) {
	roi = roi.Intersect(img.Bounds())
	xRanges := imgproc.SegmentRanges(roi.Dx(), imgproc.TileSize)
	yRanges := imgproc.SegmentRanges(roi.Dy(), imgproc.TileSize)
	if len(xRanges) == 0 || len(yRanges) == 0 {
		return nil, nil
	}

	var tiles []image.Rectangle
	for _, yr := range yRanges {
		for _, xr := range xRanges {
			tiles = append(tiles, image.Rect(
				roi.Min.X+xr.Start, roi.Min.Y+yr.Start,
				roi.Min.X+xr.End, roi.Min.Y+yr.End))
		}
	}

	scores, err := scorer.ScoreTiles(ctx, img, tiles)
	if err != nil {
		return nil, err
	}
	metrics.SegmentsScoredTotal.Add(float64(len(tiles)))

	segments := make([]Segment, len(tiles))
	for i, t := range tiles {
		if scores[i] > 0.5 {
			metrics.PositiveSegmentsTotal.Inc()
		}
		segments[i] = Segment{
			MinX:  t.Min.X,
			MinY:  t.Min.Y,
			MaxX:  t.Max.X,
			MaxY:  t.Max.Y,
			Score: scores[i],
		}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Score > segments[j].Score
	})
	return segments, nil
}
