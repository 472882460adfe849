package data

import (
	"context"
	"database/sql"
	"fmt"
)

// WeatherCacheModel is the durable tier of the weather cache, keyed by
// (camera, timestamp). The hot tier lives in Redis (internal/weather).
type WeatherCacheModel struct {
	DB DBTX
}

// Get returns the cached observation JSON, or ErrRecordNotFound.
// Entries from other sources are ignored so a provider change
// invalidates the cache naturally.
func (m WeatherCacheModel) Get(ctx context.Context, cameraID string, ts int64, source string) ([]byte, error) {
	var raw []byte
	var gotSource string
	err := m.DB.QueryRowContext(ctx,
		`SELECT weather, source FROM weather WHERE camera_id = $1 AND timestamp = $2`,
		cameraID, ts).Scan(&raw, &gotSource)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("weather cache get: %w", err)
	}
	if gotSource != source {
		return nil, ErrRecordNotFound
	}
	return raw, nil
}

func (m WeatherCacheModel) Put(ctx context.Context, cameraID string, ts int64, weather []byte, source string) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO weather (camera_id, timestamp, weather, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (camera_id, timestamp) DO NOTHING`,
		cameraID, ts, weather, source)
	if err != nil {
		return fmt.Errorf("weather cache put: %w", err)
	}
	return nil
}
