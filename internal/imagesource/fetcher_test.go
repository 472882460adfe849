package imagesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/openfirewatch/firewatch/internal/data"
)

func cameraServer(t *testing.T, body string, headers map[string]string, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// A PTZ camera is downloaded like any other: the current frame is
// archived unprocessed with the heading from per-image metadata, then
// the whole recent unprocessed batch comes back for detection.
func TestFetch_PTZDownloadsAndReturnsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	hits := 0
	srv := cameraServer(t, "jpegbytes", map[string]string{
		"X-Heading":   "45",
		"X-Timestamp": "1700000100",
		"X-FOV":       "60",
	}, &hits)

	now := int64(1700000200)
	mock.ExpectExec(`INSERT INTO archive`).
		WithArgs("ptz-1", 45, int64(1700000100), sqlmock.AnyArg(), 60.0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT camera_id, heading, timestamp, image_path, fov, processed`).
		WithArgs("ptz-1", now-300, data.SentinelHeading).
		WillReturnRows(sqlmock.NewRows(
			[]string{"camera_id", "heading", "timestamp", "image_path", "fov", "processed"}).
			AddRow("ptz-1", 45, int64(1700000100), "/tmp/x.jpg", 60.0, false))

	f := NewFetcher(data.ArchiveModel{DB: db}, t.TempDir())
	f.HTTPClient = srv.Client()

	camera := &data.Camera{ID: "ptz-1", URL: srv.URL} // nil heading: PTZ
	frames, err := f.Fetch(context.Background(), camera, now)
	if err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("camera URL hit %d times, want 1", hits)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Heading != 45 || frames[0].FieldOfView != 60 {
		t.Errorf("frame metadata = heading %d fov %.0f, want 45/60",
			frames[0].Heading, frames[0].FieldOfView)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A fixed camera yields one frame per fetch and skips the archive write
// entirely when the content hash is unchanged.
func TestFetch_FixedCameraDedupesUnchangedContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	hits := 0
	srv := cameraServer(t, "jpegbytes", nil, &hits)

	heading := 120.0
	now := int64(1700000200)
	mock.ExpectExec(`INSERT INTO archive`).
		WithArgs("cam-1", 120, now, sqlmock.AnyArg(), 110.0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := NewFetcher(data.ArchiveModel{DB: db}, t.TempDir())
	f.HTTPClient = srv.Client()

	camera := &data.Camera{ID: "cam-1", URL: srv.URL, Heading: &heading}
	frames, err := f.Fetch(context.Background(), camera, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 || frames[0].Heading != 120 {
		t.Fatalf("first fetch frames = %+v, want one at heading 120", frames)
	}

	frames, err = f.Fetch(context.Background(), camera, now+60)
	if err != nil {
		t.Fatal(err)
	}
	if frames != nil {
		t.Errorf("unchanged content produced frames: %+v", frames)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
