package blob

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreCopyDownloadURL(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, "https://blobs.example.com/")

	local := filepath.Join(t.TempDir(), "alert.jpg")
	if err := os.WriteFile(local, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.Local).Unix()
	name, err := s.Copy(local, "notifications", ts)
	if err != nil {
		t.Fatal(err)
	}
	if name != "notifications/2026-08-24/alert.jpg" {
		t.Errorf("name = %q", name)
	}
	if _, err := os.Stat(filepath.Join(root, "notifications", "2026-08-24", "alert.jpg")); err != nil {
		t.Errorf("stored object missing: %v", err)
	}

	out := filepath.Join(t.TempDir(), "copy.jpg")
	if err := s.Download(name, out); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "jpeg-bytes" {
		t.Errorf("downloaded content = %q", got)
	}

	if url := s.PublicURL(name); url != "https://blobs.example.com/notifications/2026-08-24/alert.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestStoreCopy_MissingSource(t *testing.T) {
	s := NewStore(t.TempDir(), "https://blobs.example.com")
	if _, err := s.Copy("/no/such/file.jpg", "notifications", 0); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestStoreDownload_MissingObject(t *testing.T) {
	s := NewStore(t.TempDir(), "https://blobs.example.com")
	if err := s.Download("notifications/2026-08-24/none.jpg", filepath.Join(t.TempDir(), "x.jpg")); err == nil {
		t.Error("expected error for missing object")
	}
}
