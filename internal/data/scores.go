package data

import (
	"context"
	"fmt"
	"strings"
)

// Score is one classified tile. Rows are retained for a multi-week
// rolling window to drive the historical false-positive filter.
type Score struct {
	CameraID     string
	Heading      int
	Timestamp    int64
	MinX         int
	MinY         int
	MaxX         int
	MaxY         int
	Score        float64
	SecondsInDay int
	ModelID      string
}

// HistStat aggregates historical scores for one tile bbox.
type HistStat struct {
	MinX  int
	MinY  int
	MaxX  int
	MaxY  int
	Count int
	Avg   float64
	Max   float64
}

type ScoreModel struct {
	DB DBTX
}

// InsertBatch writes all tile scores for one classified image in a
// single statement. Out-of-order inserts across concurrent workers are
// fine: the filter query is time-bounded, not order-sensitive.
func (m ScoreModel) InsertBatch(ctx context.Context, rows []Score) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO scores
		(camera_id, heading, timestamp, min_x, min_y, max_x, max_y, score, seconds_in_day, model_id) VALUES `)
	args := make([]any, 0, len(rows)*10)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 10
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args, r.CameraID, r.Heading, r.Timestamp,
			r.MinX, r.MinY, r.MaxX, r.MaxY, r.Score, r.SecondsInDay, r.ModelID)
	}
	_, err := m.DB.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("insert scores: %w", err)
	}
	return nil
}

// QueryWindow returns per-bbox aggregates for the historical filter:
// same camera, heading and model, timestamps between 7.5 days and 12
// hours ago, and time of day within one hour of the current image.
func (m ScoreModel) QueryWindow(ctx context.Context, cameraID string, heading int, modelID string, tNow int64, secondsInDay int) ([]HistStat, error) {
	query := `
		SELECT min_x, min_y, max_x, max_y, count(*), avg(score), max(score)
		FROM scores
		WHERE camera_id = $1 AND heading = $2 AND model_id = $3
		  AND timestamp > $4 AND timestamp < $5
		  AND seconds_in_day > $6 AND seconds_in_day < $7
		GROUP BY min_x, min_y, max_x, max_y`

	rows, err := m.DB.QueryContext(ctx, query, cameraID, heading, modelID,
		tNow-60*60*int64(24*7.5), tNow-60*60*12,
		secondsInDay-3600, secondsInDay+3600)
	if err != nil {
		return nil, fmt.Errorf("query score window: %w", err)
	}
	defer rows.Close()

	var stats []HistStat
	for rows.Next() {
		var s HistStat
		if err := rows.Scan(&s.MinX, &s.MinY, &s.MaxX, &s.MaxY, &s.Count, &s.Avg, &s.Max); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// DeleteOlderThan purges scores past the retention window (3 weeks in
// production). Returns the number of rows removed.
func (m ScoreModel) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM scores WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old scores: %w", err)
	}
	return res.RowsAffected()
}

// CountSince helpers back the daily stats job.
func (m ScoreModel) CountSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM scores WHERE timestamp > $1`, since).Scan(&n)
	return n, err
}

func (m ScoreModel) CountPositiveSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM scores WHERE score > 0.5 AND timestamp > $1`, since).Scan(&n)
	return n, err
}

func (m ScoreModel) CountImagesSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM
		(SELECT camera_id, timestamp FROM scores WHERE timestamp > $1
		 GROUP BY camera_id, timestamp) AS q0`, since).Scan(&n)
	return n, err
}
