package classifier

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/openfirewatch/firewatch/internal/data"
)

// Raw scores below this never qualify, regardless of history.
const baseScoreThreshold = 0.5

// histMargin is added to the historical max so a recurring artifact has
// to score meaningfully above its own past to fire.
const histMargin = 0.2

// HistThreshold is the production policy: classify every tile, persist
// the scores, then accept only segments that clear a per-region
// threshold derived from the region's recent history at the same time
// of day. Accepted candidates are re-verified on a stretched region to
// suppress tiling edge artifacts.
type HistThreshold struct {
	Scorer      Scorer
	Scores      data.ScoreModel
	CheckShifts bool
}

func NewHistThreshold(scorer Scorer, scores data.ScoreModel) *HistThreshold {
	return &HistThreshold{Scorer: scorer, Scores: scores, CheckShifts: true}
}

func (p *HistThreshold) Detect(ctx context.Context, req Request) (*Result, error) {
	segments, err := SegmentAndClassify(ctx, p.Scorer, req.Image, req.ROI)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return &Result{}, nil
	}

	if !req.Stateless {
		if err := p.recordScores(ctx, req, segments); err != nil {
			return nil, fmt.Errorf("record scores: %w", err)
		}
	}

	fire, err := p.filter(ctx, req, segments)
	if err != nil {
		return nil, err
	}
	if fire != nil && p.CheckShifts {
		fire, err = p.shiftCheck(ctx, req, fire)
		if err != nil {
			return nil, err
		}
	}
	return &Result{Fire: fire, Segments: segments}, nil
}

func (p *HistThreshold) recordScores(ctx context.Context, req Request, segments []Segment) error {
	rows := make([]data.Score, len(segments))
	for i, s := range segments {
		rows[i] = data.Score{
			CameraID:     req.CameraID,
			Heading:      req.Heading,
			Timestamp:    req.Timestamp,
			MinX:         s.MinX,
			MinY:         s.MinY,
			MaxX:         s.MaxX,
			MaxY:         s.MaxY,
			Score:        s.Score,
			SecondsInDay: data.SecondsInDay(req.Timestamp),
			ModelID:      p.Scorer.ModelID(),
		}
	}
	return p.Scores.InsertBatch(ctx, rows)
}

// filter picks the highest-scoring segment that clears its per-region
// threshold. Stateless runs skip the history lookup and use the base
// threshold for every region.
func (p *HistThreshold) filter(ctx context.Context, req Request, segments []Segment) (*FireSegment, error) {
	var hist map[[4]int]data.HistStat
	if !req.Stateless {
		stats, err := p.Scores.QueryWindow(ctx, req.CameraID, req.Heading,
			p.Scorer.ModelID(), req.Timestamp, data.SecondsInDay(req.Timestamp))
		if err != nil {
			return nil, fmt.Errorf("score history: %w", err)
		}
		hist = make(map[[4]int]data.HistStat, len(stats))
		for _, s := range stats {
			hist[[4]int{s.MinX, s.MinY, s.MaxX, s.MaxY}] = s
		}
	}

	var best *FireSegment
	for _, seg := range segments {
		if seg.Score < baseScoreThreshold {
			// Sorted descending, nothing further qualifies.
			break
		}
		threshold := baseScoreThreshold
		var stat data.HistStat
		if hist != nil {
			stat = hist[[4]int{seg.MinX, seg.MinY, seg.MaxX, seg.MaxY}]
			if stat.Count > 0 {
				threshold = max((stat.Max+1)/2, stat.Max+histMargin)
			}
		}
		if seg.Score <= threshold {
			continue
		}
		if best != nil && seg.Score <= best.Score {
			continue
		}
		best = &FireSegment{
			Segment:  seg,
			AdjScore: (seg.Score - threshold) / (1 - threshold),
			HistAvg:  stat.Avg,
			HistMax:  stat.Max,
			HistN:    stat.Count,
		}
	}
	return best, nil
}

// shiftCheck re-classifies a region stretched by a third on each side
// of the candidate. A real smoke column still scores above base there;
// a tiling artifact does not. Surviving candidates get their bounds
// tightened by every qualifying re-scored segment.
func (p *HistThreshold) shiftCheck(ctx context.Context, req Request, fire *FireSegment) (*FireSegment, error) {
	w := fire.MaxX - fire.MinX
	h := fire.MaxY - fire.MinY
	stretched := image.Rect(fire.MinX-w/3, fire.MinY-h/3, fire.MaxX+w/3, fire.MaxY+h/3).
		Intersect(req.Image.Bounds())

	segments, err := SegmentAndClassify(ctx, p.Scorer, req.Image, stretched)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return fire, nil
	}
	if segments[0].Score <= baseScoreThreshold {
		log.Printf("[Classifier] shift check rejected %s heading %d: top rescore %.3f",
			req.CameraID, req.Heading, segments[0].Score)
		return nil, nil
	}
	tightenBounds(fire, segments)
	return fire, nil
}

// tightenBounds intersects the candidate with every qualifying
// re-scored segment that overlaps it. Segments disjoint from the
// candidate are ignored; intersecting with one would invert the bbox.
func tightenBounds(fire *FireSegment, segments []Segment) {
	for _, s := range segments {
		if s.Score <= baseScoreThreshold {
			break
		}
		if !s.Rect().Overlaps(fire.Rect()) {
			continue
		}
		fire.MinX = max(fire.MinX, s.MinX)
		fire.MinY = max(fire.MinY, s.MinY)
		fire.MaxX = min(fire.MaxX, s.MaxX)
		fire.MaxY = min(fire.MaxY, s.MaxY)
	}
}
