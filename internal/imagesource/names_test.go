package imagesource

import (
	"path/filepath"
	"testing"
	"time"
)

func TestImagePathParseFilenameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 24, 11, 12, 23, 0, time.Local).Unix()

	cases := []struct {
		diff int
		crop *[4]int
	}{
		{0, nil},
		{1, nil},
		{0, &[4]int{627, 632, 1279, 931}},
		{2, &[4]int{-10, 0, 500, 300}},
	}
	for _, tc := range cases {
		path := ImagePath("/tmp/archive", "lo-s-mobo-c", ts, tc.diff, tc.crop)
		p, err := ParseFilename(path)
		if err != nil {
			t.Fatalf("parse %q: %v", path, err)
		}
		if p.CameraID != "lo-s-mobo-c" {
			t.Errorf("camera = %q", p.CameraID)
		}
		if p.Timestamp != ts {
			t.Errorf("timestamp = %d, want %d", p.Timestamp, ts)
		}
		if p.DiffMinutes != tc.diff {
			t.Errorf("diff = %d, want %d", p.DiffMinutes, tc.diff)
		}
		if tc.crop == nil {
			if p.HasCrop {
				t.Errorf("unexpected crop in %q", path)
			}
			continue
		}
		if !p.HasCrop || p.MinX != tc.crop[0] || p.MinY != tc.crop[1] ||
			p.MaxX != tc.crop[2] || p.MaxY != tc.crop[3] {
			t.Errorf("crop = %+v, want %v", p, *tc.crop)
		}
	}
}

func TestParseFilename_SemicolonTime(t *testing.T) {
	p, err := ParseFilename("lo-s-mobo-c__2018-06-06T11;12;23_Diff1_Crop_627x632x1279x931.jpg")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2018, 6, 6, 11, 12, 23, 0, time.Local).Unix()
	if p.Timestamp != want {
		t.Errorf("timestamp = %d, want %d", p.Timestamp, want)
	}
	if p.DiffMinutes != 1 || !p.HasCrop || p.MaxY != 931 {
		t.Errorf("unexpected parse %+v", p)
	}
}

func TestParseFilename_UnixSeconds(t *testing.T) {
	p, err := ParseFilename(filepath.Join("some", "dir", "1528308743.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Timestamp != 1528308743 {
		t.Errorf("timestamp = %d", p.Timestamp)
	}
	if p.CameraID != "UNKNOWN_1528308743" {
		t.Errorf("camera = %q", p.CameraID)
	}
}

func TestParseFilename_Garbage(t *testing.T) {
	if _, err := ParseFilename("notes.txt"); err == nil {
		t.Error("expected error for unrecognized name")
	}
}
