package data

import (
	"context"
	"fmt"
)

// Probable is a segment that passed the historical filter but has not
// yet been qualified by geometry and weather. Probables are an audit
// trail: they are never rolled back when later stages fail.
type Probable struct {
	CameraID  string
	Heading   int
	Timestamp int64
	MinX      int
	MinY      int
	MaxX      int
	MaxY      int
	Score     float64
	AdjScore  float64
	HistAvg   float64
	HistMax   float64
	HistN     int
	ImagePath string
	ModelID   string
}

type ProbableModel struct {
	DB DBTX
}

func (m ProbableModel) Insert(ctx context.Context, p Probable) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO probables
		(camera_id, heading, timestamp, min_x, min_y, max_x, max_y,
		 score, adj_score, hist_avg, hist_max, hist_n, image_path, model_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.CameraID, p.Heading, p.Timestamp, p.MinX, p.MinY, p.MaxX, p.MaxY,
		p.Score, p.AdjScore, p.HistAvg, p.HistMax, p.HistN, p.ImagePath, p.ModelID)
	if err != nil {
		return fmt.Errorf("insert probable: %w", err)
	}
	return nil
}

// RecentExists reports whether a probable for the same camera and
// heading was recorded after the given time. The pipeline uses a 1 hour
// window so at most one probable exists per (camera, heading, window).
func (m ProbableModel) RecentExists(ctx context.Context, cameraID string, heading int, since int64) (bool, error) {
	var exists bool
	err := m.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM probables
		               WHERE camera_id = $1 AND heading = $2 AND timestamp > $3)`,
		cameraID, heading, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent probable: %w", err)
	}
	return exists, nil
}

func (m ProbableModel) CountSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM probables WHERE timestamp > $1`, since).Scan(&n)
	return n, err
}
