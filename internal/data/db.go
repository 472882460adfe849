package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)

// DBTX is a common interface for *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Models bundles every table model over one shared connection pool.
type Models struct {
	Cameras      CameraModel
	Counters     CounterModel
	Scores       ScoreModel
	Probables    ProbableModel
	Detections   DetectionModel
	Alerts       AlertModel
	IgnoredViews IgnoredViewModel
	Archive      ArchiveModel
	Weather      WeatherCacheModel
	Stats        StatsModel

	db *sql.DB
}

func bindModels(db DBTX) Models {
	return Models{
		Cameras:      CameraModel{DB: db},
		Counters:     CounterModel{DB: db},
		Scores:       ScoreModel{DB: db},
		Probables:    ProbableModel{DB: db},
		Detections:   DetectionModel{DB: db},
		Alerts:       AlertModel{DB: db},
		IgnoredViews: IgnoredViewModel{DB: db},
		Archive:      ArchiveModel{DB: db},
		Weather:      WeatherCacheModel{DB: db},
		Stats:        StatsModel{DB: db},
	}
}

func NewModels(db *sql.DB) Models {
	m := bindModels(db)
	m.db = db
	return m
}

// WithTx runs fn with Models bound to a single transaction. Used for the
// detections+alerts write which must commit or roll back together.
func (m Models) WithTx(ctx context.Context, fn func(tx Models) error) error {
	if m.db == nil {
		return errors.New("models not backed by *sql.DB")
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(bindModels(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Open connects to postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SecondsInDay returns hour*3600 + minute*60 + second in local time,
// the key for time-of-day historical comparisons.
func SecondsInDay(ts int64) int {
	t := time.Unix(ts, 0)
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
