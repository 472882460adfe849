package weather

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/openfirewatch/firewatch/internal/data"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(make([]float64, FeatureCount), 0)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCombinedScore_PassThroughOnProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT weather, source FROM weather`).
		WillReturnError(sql.ErrNoRows)

	svc := NewService(NewHTTPProvider(srv.URL, ""), testModel(t),
		data.WeatherCacheModel{DB: db}, nil, "test")

	got := svc.CombinedScore(context.Background(), "cam-1", 1700000000,
		34.1, -118.1, 34.0, -118.0, 0.6, 1)
	if got != 1.0 {
		t.Errorf("score = %f, want 1.0 pass-through on failure", got)
	}
}

func TestGet_FetchesAndWarmsCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		json.NewEncoder(w).Encode(Observation{Temperature: 85, Humidity: 20})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT weather, source FROM weather`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO weather`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewService(NewHTTPProvider(srv.URL, ""), testModel(t),
		data.WeatherCacheModel{DB: db}, rdb, "test")

	atCentroid, atCamera, err := svc.Get(context.Background(), "cam-1", 1700000000,
		34.1, -118.1, 34.0, -118.0)
	if err != nil {
		t.Fatal(err)
	}
	if atCentroid.Temperature != 85 || atCamera.Temperature != 85 {
		t.Errorf("unexpected observations: %+v %+v", atCentroid, atCamera)
	}
	if calls != 2 {
		t.Errorf("expected 2 provider calls (centroid + camera), got %d", calls)
	}

	// Second lookup is served from Redis without touching provider or
	// the durable tier.
	if _, _, err := svc.Get(context.Background(), "cam-1", 1700000000,
		34.1, -118.1, 34.0, -118.0); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("redis hit should not refetch, got %d calls", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
