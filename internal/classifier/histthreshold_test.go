package classifier

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/openfirewatch/firewatch/internal/data"
)

// scriptedScorer returns pre-arranged score batches in call order.
type scriptedScorer struct {
	batches [][]float64
	calls   int
}

func (s *scriptedScorer) ScoreTiles(_ context.Context, _ image.Image, tiles []image.Rectangle) ([]float64, error) {
	if s.calls >= len(s.batches) {
		return make([]float64, len(tiles)), nil
	}
	batch := s.batches[s.calls]
	s.calls++
	out := make([]float64, len(tiles))
	copy(out, batch)
	return out, nil
}

func (s *scriptedScorer) ModelID() string { return "model-a" }

func singleTileImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 299, 299))
}

func histRows(count int, avg, max float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"min_x", "min_y", "max_x", "max_y", "count", "avg", "max"}).
		AddRow(0, 0, 299, 299, count, avg, max)
}

// Recurring glare: a region whose history already peaks at 0.62 needs
// more than (0.62+1)/2 = 0.81 to fire; a raw 0.78 is suppressed.
func TestHistThreshold_SuppressesRecurringGlare(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO scores`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT min_x, min_y, max_x, max_y`).
		WillReturnRows(histRows(30, 0.4, 0.62))

	scorer := &scriptedScorer{batches: [][]float64{{0.78}}}
	p := NewHistThreshold(scorer, data.ScoreModel{DB: db})

	result, err := p.Detect(context.Background(), Request{
		CameraID:  "cam-1",
		Heading:   90,
		Timestamp: 1700000000,
		Image:     singleTileImage(),
		ROI:       image.Rect(0, 0, 299, 299),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Fire != nil {
		t.Errorf("expected suppression, got fire %+v", result.Fire)
	}
	if len(result.Segments) != 1 {
		t.Errorf("expected 1 segment recorded, got %d", len(result.Segments))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// True positive: history max 0.15 gives threshold 0.575; a raw 0.81
// passes with adjScore (0.81-0.575)/(1-0.575) ~ 0.553, and the shift
// re-score of 0.72 confirms.
func TestHistThreshold_TruePositiveAdjScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO scores`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT min_x, min_y, max_x, max_y`).
		WillReturnRows(histRows(12, 0.08, 0.15))

	scorer := &scriptedScorer{batches: [][]float64{{0.81}, {0.72}}}
	p := NewHistThreshold(scorer, data.ScoreModel{DB: db})

	result, err := p.Detect(context.Background(), Request{
		CameraID:  "cam-1",
		Heading:   90,
		Timestamp: 1700000000,
		Image:     singleTileImage(),
		ROI:       image.Rect(0, 0, 299, 299),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Fire == nil {
		t.Fatal("expected a fire segment")
	}
	if math.Abs(result.Fire.AdjScore-0.553) > 0.001 {
		t.Errorf("adjScore = %.4f, want ~0.553", result.Fire.AdjScore)
	}
	if result.Fire.HistMax != 0.15 || result.Fire.HistN != 12 {
		t.Errorf("history context not attached: %+v", result.Fire)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// The shift re-score failing to clear the base threshold discards the
// candidate as a tiling artifact.
func TestHistThreshold_ShiftCheckRejects(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO scores`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT min_x, min_y, max_x, max_y`).
		WillReturnRows(histRows(12, 0.08, 0.15))

	scorer := &scriptedScorer{batches: [][]float64{{0.81}, {0.42}}}
	p := NewHistThreshold(scorer, data.ScoreModel{DB: db})

	result, err := p.Detect(context.Background(), Request{
		CameraID:  "cam-1",
		Heading:   90,
		Timestamp: 1700000000,
		Image:     singleTileImage(),
		ROI:       image.Rect(0, 0, 299, 299),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Fire != nil {
		t.Errorf("expected shift check rejection, got %+v", result.Fire)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Stateless runs record nothing and accept any score above base.
func TestHistThreshold_Stateless(t *testing.T) {
	scorer := &scriptedScorer{batches: [][]float64{{0.6}, {0.9}}}
	p := NewHistThreshold(scorer, data.ScoreModel{})

	result, err := p.Detect(context.Background(), Request{
		CameraID:  "cam-1",
		Heading:   90,
		Timestamp: 1700000000,
		Image:     singleTileImage(),
		ROI:       image.Rect(0, 0, 299, 299),
		Stateless: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Fire == nil {
		t.Fatal("expected a fire segment in stateless mode")
	}
	if math.Abs(result.Fire.AdjScore-0.2) > 1e-9 {
		t.Errorf("adjScore = %.4f, want 0.2 against base threshold", result.Fire.AdjScore)
	}
}

// A qualifying re-scored segment disjoint from the candidate must not
// tighten it: intersecting with one would invert the box.
func TestTightenBounds_SkipsDisjointSegments(t *testing.T) {
	fire := &FireSegment{Segment: Segment{MinX: 0, MinY: 0, MaxX: 299, MaxY: 299, Score: 0.9}}
	segments := []Segment{
		{MinX: 600, MinY: 0, MaxX: 899, MaxY: 299, Score: 0.8},   // disjoint, skipped
		{MinX: 99, MinY: 0, MaxX: 398, MaxY: 299, Score: 0.7},    // overlaps, tightens
		{MinX: 150, MinY: 150, MaxX: 299, MaxY: 299, Score: 0.4}, // below base, ignored
	}
	tightenBounds(fire, segments)

	if fire.MinX != 99 || fire.MinY != 0 || fire.MaxX != 299 || fire.MaxY != 299 {
		t.Errorf("bounds = (%d,%d,%d,%d), want (99,0,299,299)",
			fire.MinX, fire.MinY, fire.MaxX, fire.MaxY)
	}
	if fire.MinX > fire.MaxX || fire.MinY > fire.MaxY {
		t.Error("tightening produced an inverted box")
	}
}

func TestSegmentAndClassify_TooSmallROI(t *testing.T) {
	scorer := &scriptedScorer{}
	segs, err := SegmentAndClassify(context.Background(), scorer, singleTileImage(), image.Rect(0, 0, 100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if segs != nil {
		t.Errorf("expected no segments for undersized ROI, got %v", segs)
	}
}
