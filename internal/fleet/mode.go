package fleet

import (
	"fmt"
	"time"
)

// Mode is the diurnal operating mode of the fleet.
type Mode string

const (
	ModeInactive Mode = "inactive"
	ModeArchive  Mode = "archive"
	ModeDetect   Mode = "detect"
)

// Ordinal maps modes to stable gauge values.
func (m Mode) Ordinal() int {
	switch m {
	case ModeArchive:
		return 1
	case ModeDetect:
		return 2
	default:
		return 0
	}
}

// archiveMargin extends image capture slightly past the detect window
// so the first and last detect cycles have prior frames to draw on.
const archiveMargin = 10 * time.Minute

// Window is the daily detect interval in local wall-clock time.
type Window struct {
	startMins int
	endMins   int
}

// ParseWindow builds a Window from "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := parseHHMM(start)
	if err != nil {
		return Window{}, fmt.Errorf("detect start: %w", err)
	}
	e, err := parseHHMM(end)
	if err != nil {
		return Window{}, fmt.Errorf("detect end: %w", err)
	}
	if e <= s {
		return Window{}, fmt.Errorf("detect window %s-%s is empty", start, end)
	}
	return Window{startMins: s, endMins: e}, nil
}

func parseHHMM(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ModeAt classifies a wall-clock instant.
func (w Window) ModeAt(now time.Time) Mode {
	mins := now.Hour()*60 + now.Minute()
	margin := int(archiveMargin.Minutes())
	switch {
	case mins >= w.startMins && mins <= w.endMins:
		return ModeDetect
	case mins >= w.startMins-margin && mins <= w.endMins+margin:
		return ModeArchive
	default:
		return ModeInactive
	}
}

// PostWorkAt reports whether the daily post-work grace period has
// opened: a fixed delay past the end of the detect window. A late
// detect window can push the trigger past midnight; it then opens in
// the early-morning inactive stretch before the next detect window.
func (w Window) PostWorkAt(now time.Time, grace time.Duration) bool {
	mins := now.Hour()*60 + now.Minute()
	trigger := (w.endMins + int(grace.Minutes())) % (24 * 60)
	if trigger > w.endMins {
		return mins >= trigger
	}
	return mins >= trigger && mins < w.startMins
}
