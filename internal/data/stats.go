package data

import (
	"context"
	"fmt"
)

// DailyStats is the per-day summary row written by the fleet
// controller's post-work task.
type DailyStats struct {
	Date             string
	Images           int64
	AllSegments      int64
	PositiveSegments int64
	Probables        int64
	Detections       int64
	Alerts           int64
	ProdCamsCount    int64
	ProdAlerts       int64
}

type StatsModel struct {
	DB DBTX
}

func (m StatsModel) ExistsForDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := m.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM stats WHERE date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stats date: %w", err)
	}
	return exists, nil
}

func (m StatsModel) InsertDaily(ctx context.Context, s DailyStats) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO stats
		(date, images, all_segments, positive_segments, probables, detections, alerts, prod_cams_count, prod_alerts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.Date, s.Images, s.AllSegments, s.PositiveSegments,
		s.Probables, s.Detections, s.Alerts, s.ProdCamsCount, s.ProdAlerts)
	if err != nil {
		return fmt.Errorf("insert daily stats: %w", err)
	}
	return nil
}
