package fleet

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04", "2026-08-24 "+hhmm)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestParseWindow(t *testing.T) {
	if _, err := ParseWindow("08:00", "19:30"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseWindow("nope", "19:30"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ParseWindow("19:30", "08:00"); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestWindowModeAt(t *testing.T) {
	w, err := ParseWindow("08:00", "19:30")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		clock string
		want  Mode
	}{
		{"03:00", ModeInactive},
		{"07:49", ModeInactive},
		{"07:51", ModeArchive},
		{"08:00", ModeDetect},
		{"12:00", ModeDetect},
		{"19:30", ModeDetect},
		{"19:35", ModeArchive},
		{"19:41", ModeInactive},
		{"23:59", ModeInactive},
	}
	for _, tc := range cases {
		if got := w.ModeAt(at(tc.clock)); got != tc.want {
			t.Errorf("%s: mode = %s, want %s", tc.clock, got, tc.want)
		}
	}
}

func TestWindowPostWorkAt(t *testing.T) {
	w, err := ParseWindow("08:00", "19:30")
	if err != nil {
		t.Fatal(err)
	}
	grace := 80 * time.Minute
	if w.PostWorkAt(at("20:00"), grace) {
		t.Error("post-work opened before grace elapsed")
	}
	if !w.PostWorkAt(at("20:50"), grace) {
		t.Error("post-work should open 80 minutes after detect end")
	}
}

// A detect window ending late enough to push the trigger past midnight
// opens post-work in the early-morning stretch of the next calendar day.
func TestWindowPostWorkAt_TriggerPastMidnight(t *testing.T) {
	w, err := ParseWindow("08:00", "23:00")
	if err != nil {
		t.Fatal(err)
	}
	grace := 80 * time.Minute // trigger wraps to 00:20
	cases := []struct {
		clock string
		want  bool
	}{
		{"23:30", false}, // still before midnight
		{"00:10", false}, // past midnight, before the wrapped trigger
		{"00:20", true},
		{"03:00", true},
		{"07:59", true},
		{"08:00", false}, // next detect window opens
		{"12:00", false},
	}
	for _, tc := range cases {
		if got := w.PostWorkAt(at(tc.clock), grace); got != tc.want {
			t.Errorf("%s: post-work = %v, want %v", tc.clock, got, tc.want)
		}
	}
}

func TestModeOrdinal(t *testing.T) {
	if ModeInactive.Ordinal() != 0 || ModeArchive.Ordinal() != 1 || ModeDetect.Ordinal() != 2 {
		t.Error("ordinals changed; metrics dashboards depend on them")
	}
}
