package data

import (
	"context"
	"encoding/json"
	"fmt"
)

// Detection is a qualified probable: it carries the confirmed viewshed
// polygon (or its intersection with recent detections), the triangles
// that contributed, the weather score and the composed artifact URIs.
type Detection struct {
	CameraID       string
	Heading        int
	Timestamp      int64
	MinX           int
	MinY           int
	MaxX           int
	MaxY           int
	AdjScore       float64
	Polygon        [][2]float64
	SourcePolygons [][][2]float64
	WeatherScore   float64
	ImagePath      string
	CroppedURL     string
	AnnotatedURL   string
	MapURL         string
	IsProto        bool
	ModelID        string
}

// Alert is the subset of detections published to external consumers.
type Alert struct {
	CameraID     string
	Timestamp    int64
	AdjScore     float64
	Polygon      [][2]float64
	CroppedURL   string
	AnnotatedURL string
	MapURL       string
	WeatherScore float64
	Published    bool
}

type DetectionModel struct {
	DB DBTX
}

type AlertModel struct {
	DB DBTX
}

func (m DetectionModel) Insert(ctx context.Context, d Detection) error {
	poly, err := json.Marshal(d.Polygon)
	if err != nil {
		return err
	}
	srcPolys, err := json.Marshal(d.SourcePolygons)
	if err != nil {
		return err
	}
	_, err = m.DB.ExecContext(ctx, `
		INSERT INTO detections
		(camera_id, heading, timestamp, min_x, min_y, max_x, max_y, adj_score,
		 polygon, source_polygons, weather_score, image_path,
		 cropped_url, annotated_url, map_url, is_proto, model_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		d.CameraID, d.Heading, d.Timestamp, d.MinX, d.MinY, d.MaxX, d.MaxY, d.AdjScore,
		poly, srcPolys, d.WeatherScore, d.ImagePath,
		d.CroppedURL, d.AnnotatedURL, d.MapURL, d.IsProto, d.ModelID)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// Recent returns detections newer than the given time, used for the
// multi-camera viewshed intersection.
func (m DetectionModel) Recent(ctx context.Context, since int64) ([]Detection, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, adj_score, polygon, source_polygons, weather_score
		FROM detections WHERE timestamp > $1`,
		since)
	if err != nil {
		return nil, fmt.Errorf("list recent detections: %w", err)
	}
	defer rows.Close()

	var dets []Detection
	for rows.Next() {
		var d Detection
		var poly, srcPolys []byte
		if err := rows.Scan(&d.CameraID, &d.Heading, &d.Timestamp, &d.AdjScore, &poly, &srcPolys, &d.WeatherScore); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(poly, &d.Polygon); err != nil {
			return nil, fmt.Errorf("bad polygon for %s@%d: %w", d.CameraID, d.Timestamp, err)
		}
		if len(srcPolys) > 0 {
			if err := json.Unmarshal(srcPolys, &d.SourcePolygons); err != nil {
				return nil, fmt.Errorf("bad source polygons for %s@%d: %w", d.CameraID, d.Timestamp, err)
			}
		}
		dets = append(dets, d)
	}
	return dets, rows.Err()
}

func (m DetectionModel) CountSince(ctx context.Context, since int64, protoOK bool) (int64, error) {
	query := `SELECT count(*) FROM detections WHERE timestamp > $1`
	if !protoOK {
		query += ` AND is_proto = false`
	}
	var n int64
	err := m.DB.QueryRowContext(ctx, query, since).Scan(&n)
	return n, err
}

func (m AlertModel) Insert(ctx context.Context, a Alert) error {
	poly, err := json.Marshal(a.Polygon)
	if err != nil {
		return err
	}
	_, err = m.DB.ExecContext(ctx, `
		INSERT INTO alerts
		(camera_id, timestamp, adj_score, polygon, cropped_url, annotated_url, map_url, weather_score, published)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.CameraID, a.Timestamp, a.AdjScore, poly,
		a.CroppedURL, a.AnnotatedURL, a.MapURL, a.WeatherScore, a.Published)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// MarkPublished records a successful notification publish. Alerts whose
// publish failed stay with published=false for later republish.
func (m AlertModel) MarkPublished(ctx context.Context, cameraID string, ts int64) error {
	_, err := m.DB.ExecContext(ctx,
		`UPDATE alerts SET published = true WHERE camera_id = $1 AND timestamp = $2`,
		cameraID, ts)
	return err
}

// RecentExists reports whether this camera already alerted since the
// given cutoff.
func (m AlertModel) RecentExists(ctx context.Context, cameraID string, since int64) (bool, error) {
	var n int
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM alerts WHERE camera_id = $1 AND timestamp > $2`,
		cameraID, since).Scan(&n)
	return n > 0, err
}

func (m AlertModel) CountSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := m.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM alerts WHERE timestamp > $1`, since).Scan(&n)
	return n, err
}
