package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Camera represents one fixed or pan-tilt-zoom image source. Fixed
// cameras carry a heading and field of view; PTZ cameras supply heading
// per fetched image and have NULL here.
type Camera struct {
	ID        string
	URL       string
	Type      string
	Heading   *float64
	FOV       *float64
	Latitude  float64
	Longitude float64
	Dormant   bool
	// UsableMinY/UsableMaxY restrict classification to a Y band; nil
	// means the default interior band.
	UsableMinY *int
	UsableMaxY *int
	MapPath    string
}

// IsPTZ reports whether the camera pans, i.e. has no fixed heading.
func (c *Camera) IsPTZ() bool {
	return c.Heading == nil
}

// IsPrototype reports whether the camera's type tag marks it as a
// prototype source, which never produces external alerts.
func (c *Camera) IsPrototype(prodTypes []string) bool {
	for _, t := range prodTypes {
		if c.Type == t {
			return false
		}
	}
	return true
}

type CameraModel struct {
	DB DBTX
}

const cameraColumns = `id, url, type, heading, fov, latitude, longitude, dormant, usable_min_y, usable_max_y, map_path`

func scanCamera(row interface{ Scan(...any) error }) (*Camera, error) {
	var c Camera
	var mapPath sql.NullString
	err := row.Scan(&c.ID, &c.URL, &c.Type, &c.Heading, &c.FOV,
		&c.Latitude, &c.Longitude, &c.Dormant, &c.UsableMinY, &c.UsableMaxY, &mapPath)
	if err != nil {
		return nil, err
	}
	c.MapPath = mapPath.String
	return &c, nil
}

// GetActive lists non-dormant cameras, optionally restricted to the
// given type tags.
func (m CameraModel) GetActive(ctx context.Context, typeFilter []string) ([]*Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE dormant = false`
	var args []any
	if len(typeFilter) > 0 {
		query += ` AND type = ANY($1)`
		args = append(args, pq.Array(typeFilter))
	}
	query += ` ORDER BY id`

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []*Camera
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}
	return cameras, rows.Err()
}

func (m CameraModel) GetByID(ctx context.Context, id string) (*Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE id = $1`
	c, err := scanCamera(m.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return c, err
}

// MapAndLocation returns the base map blob path and the camera location,
// used by the alert composer's map rendering step.
func (m CameraModel) MapAndLocation(ctx context.Context, id string) (string, float64, float64, error) {
	query := `SELECT map_path, latitude, longitude FROM cameras WHERE id = $1`
	var mapPath sql.NullString
	var lat, lon float64
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&mapPath, &lat, &lon)
	if err == sql.ErrNoRows {
		return "", 0, 0, ErrRecordNotFound
	}
	if err != nil {
		return "", 0, 0, err
	}
	return mapPath.String, lat, lon, nil
}
