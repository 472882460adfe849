package data

import (
	"context"
	"fmt"
	"time"
)

// IgnoredView is an angular sector administratively marked as a known
// false-positive source for one camera.
type IgnoredView struct {
	CameraID        string
	HeadingCenter   float64
	AngularWidth    float64
	CountIgnored    int64
	UpdateTimestamp int64
}

type IgnoredViewModel struct {
	DB DBTX
}

func (m IgnoredViewModel) List(ctx context.Context) ([]IgnoredView, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT camera_id, heading_center, angular_width, count_ignored, update_timestamp
		FROM ignored_views`)
	if err != nil {
		return nil, fmt.Errorf("list ignored views: %w", err)
	}
	defer rows.Close()

	var views []IgnoredView
	for rows.Next() {
		var v IgnoredView
		if err := rows.Scan(&v.CameraID, &v.HeadingCenter, &v.AngularWidth, &v.CountIgnored, &v.UpdateTimestamp); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// IncrementCount bumps the suppression counter for the matching view.
func (m IgnoredViewModel) IncrementCount(ctx context.Context, cameraID string, headingCenter float64) error {
	res, err := m.DB.ExecContext(ctx, `
		UPDATE ignored_views
		SET count_ignored = count_ignored + 1, update_timestamp = $1
		WHERE camera_id = $2 AND heading_center = $3`,
		time.Now().Unix(), cameraID, headingCenter)
	if err != nil {
		return fmt.Errorf("increment ignore counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
