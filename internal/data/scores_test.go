package data

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScoreQueryWindow_Bounds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tNow := int64(1700000000)
	secs := 43200

	// 7.5 days to 12 hours back, time of day within one hour.
	mock.ExpectQuery(`SELECT min_x, min_y, max_x, max_y`).
		WithArgs("cam-1", 90, "model-a",
			tNow-648000, tNow-43200, secs-3600, secs+3600).
		WillReturnRows(sqlmock.NewRows(
			[]string{"min_x", "min_y", "max_x", "max_y", "count", "avg", "max"}).
			AddRow(0, 0, 299, 299, 12, 0.08, 0.15))

	stats, err := ScoreModel{DB: db}.QueryWindow(
		context.Background(), "cam-1", 90, "model-a", tNow, secs)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat, got %d", len(stats))
	}
	s := stats[0]
	if s.Count != 12 || s.Max != 0.15 {
		t.Errorf("unexpected stat %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestScoreInsertBatch_SingleStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rows := []Score{
		{CameraID: "cam-1", Heading: 90, Timestamp: 100, MinX: 0, MinY: 0, MaxX: 299, MaxY: 299, Score: 0.1, SecondsInDay: 100, ModelID: "m"},
		{CameraID: "cam-1", Heading: 90, Timestamp: 100, MinX: 260, MinY: 0, MaxX: 559, MaxY: 299, Score: 0.2, SecondsInDay: 100, ModelID: "m"},
	}
	mock.ExpectExec(`INSERT INTO scores`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := (ScoreModel{DB: db}).InsertBatch(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestScoreInsertBatch_EmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := (ScoreModel{DB: db}).InsertBatch(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
