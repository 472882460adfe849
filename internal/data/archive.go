package data

import (
	"context"
	"database/sql"
	"fmt"
)

// SentinelHeading marks an archive row recorded after a fetch contract
// violation (no image or metadata). The row keeps the camera from being
// retried for roughly one cycle and is never processed.
const SentinelHeading = 999

// ArchiveImage indexes one fetched image in the short-term archive.
// Processed flips exactly once per image.
type ArchiveImage struct {
	CameraID    string
	Heading     int
	Timestamp   int64
	ImagePath   string
	FieldOfView float64
	Processed   bool
}

type ArchiveModel struct {
	DB DBTX
}

func (m ArchiveModel) Insert(ctx context.Context, a ArchiveImage) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO archive (camera_id, heading, timestamp, image_path, fov, processed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.CameraID, a.Heading, a.Timestamp, a.ImagePath, a.FieldOfView, a.Processed)
	if err != nil {
		return fmt.Errorf("insert archive row: %w", err)
	}
	return nil
}

// LastFetchTime returns the newest archive timestamp for the camera
// within the last hour, or 0 when there is none.
func (m ArchiveModel) LastFetchTime(ctx context.Context, cameraID string, now int64) (int64, error) {
	var ts int64
	err := m.DB.QueryRowContext(ctx, `
		SELECT timestamp FROM archive
		WHERE camera_id = $1 AND timestamp > $2
		ORDER BY timestamp DESC LIMIT 1`,
		cameraID, now-3600).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ts, nil
}

// RecentUnprocessed lists unprocessed frames for a PTZ camera in
// ascending time order. The pipeline consumes the whole batch before the
// scheduler advances, preserving per-(camera, heading) ordering.
func (m ArchiveModel) RecentUnprocessed(ctx context.Context, cameraID string, since int64) ([]ArchiveImage, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, fov, processed
		FROM archive
		WHERE camera_id = $1 AND timestamp > $2 AND processed = false
		  AND heading != $3 AND image_path != ''
		ORDER BY timestamp ASC`,
		cameraID, since, SentinelHeading)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed archive rows: %w", err)
	}
	defer rows.Close()

	var imgs []ArchiveImage
	for rows.Next() {
		var a ArchiveImage
		if err := rows.Scan(&a.CameraID, &a.Heading, &a.Timestamp, &a.ImagePath, &a.FieldOfView, &a.Processed); err != nil {
			return nil, err
		}
		imgs = append(imgs, a)
	}
	return imgs, rows.Err()
}

// MarkProcessed flips the processed bit for one frame. The predicate on
// processed=false makes the flip idempotent under retry.
func (m ArchiveModel) MarkProcessed(ctx context.Context, cameraID string, heading int, ts int64) error {
	_, err := m.DB.ExecContext(ctx, `
		UPDATE archive SET processed = true
		WHERE camera_id = $1 AND heading = $2 AND timestamp = $3 AND processed = false`,
		cameraID, heading, ts)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// FramesBefore returns up to limit frames for the camera and heading
// strictly before ts, newest first.
func (m ArchiveModel) FramesBefore(ctx context.Context, cameraID string, heading int, ts int64, limit int) ([]ArchiveImage, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, fov, processed
		FROM archive
		WHERE camera_id = $1 AND heading = $2 AND timestamp < $3 AND image_path != ''
		ORDER BY timestamp DESC LIMIT $4`,
		cameraID, heading, ts, limit)
	if err != nil {
		return nil, fmt.Errorf("list frames before: %w", err)
	}
	defer rows.Close()

	var imgs []ArchiveImage
	for rows.Next() {
		var a ArchiveImage
		if err := rows.Scan(&a.CameraID, &a.Heading, &a.Timestamp, &a.ImagePath, &a.FieldOfView, &a.Processed); err != nil {
			return nil, err
		}
		imgs = append(imgs, a)
	}
	return imgs, rows.Err()
}

// FrameAfter returns the first frame strictly after ts for the camera
// and heading, or nil when none arrived yet.
func (m ArchiveModel) FrameAfter(ctx context.Context, cameraID string, heading int, ts int64) (*ArchiveImage, error) {
	var a ArchiveImage
	err := m.DB.QueryRowContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, fov, processed
		FROM archive
		WHERE camera_id = $1 AND heading = $2 AND timestamp > $3 AND image_path != ''
		ORDER BY timestamp ASC LIMIT 1`,
		cameraID, heading, ts).Scan(&a.CameraID, &a.Heading, &a.Timestamp, &a.ImagePath, &a.FieldOfView, &a.Processed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("frame after: %w", err)
	}
	return &a, nil
}

// StalePaths lists image paths older than the cutoff that are safe to
// delete: rows referenced by a detection or alert are excluded so
// artifacts backing live notifications survive the reaper.
func (m ArchiveModel) StalePaths(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT image_path FROM archive a
		WHERE image_path != '' AND timestamp < $1
		  AND NOT EXISTS (SELECT 1 FROM detections d
		                  WHERE d.camera_id = a.camera_id AND d.image_path = a.image_path)
		  AND NOT EXISTS (SELECT 1 FROM alerts al
		                  WHERE al.camera_id = a.camera_id AND al.timestamp = a.timestamp)`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale archive paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteOlderThan removes archive rows past the cutoff, with the same
// not-referenced guard as StalePaths.
func (m ArchiveModel) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := m.DB.ExecContext(ctx, `
		DELETE FROM archive a
		WHERE timestamp < $1
		  AND NOT EXISTS (SELECT 1 FROM detections d
		                  WHERE d.camera_id = a.camera_id AND d.image_path = a.image_path)
		  AND NOT EXISTS (SELECT 1 FROM alerts al
		                  WHERE al.camera_id = a.camera_id AND al.timestamp = a.timestamp)`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old archive rows: %w", err)
	}
	return res.RowsAffected()
}

func (m ArchiveModel) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx, `SELECT count(*) FROM archive`).Scan(&n)
	return n, err
}
