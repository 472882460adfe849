package fleet

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openfirewatch/firewatch/internal/config"
	"github.com/openfirewatch/firewatch/internal/data"
)

type fakeOrchestrator struct {
	sizes    map[string]int
	getCalls []string
	resizes  []string
}

func (f *fakeOrchestrator) GetGroup(_ context.Context, name string) (int, error) {
	f.getCalls = append(f.getCalls, name)
	n, ok := f.sizes[name]
	if !ok {
		return 0, errors.New("no such group")
	}
	return n, nil
}

func (f *fakeOrchestrator) Resize(_ context.Context, name string, size int) error {
	f.resizes = append(f.resizes, fmt.Sprintf("%s=%d", name, size))
	f.sizes[name] = size
	return nil
}

func testController(orch Orchestrator, start, end string) *Controller {
	s := &config.Settings{
		DetectStart:  start,
		DetectEnd:    end,
		DetectGroups: []config.DetectGroup{{Name: "scorers", Target: 3}},
	}
	return NewController(config.NewManager("", s), data.Models{}, orch, "")
}

func TestTick_ResizesOnceAndRateLimits(t *testing.T) {
	orch := &fakeOrchestrator{sizes: map[string]int{"scorers": 0}}
	c := testController(orch, "08:00", "19:30")

	now := at("12:00")
	c.Now = func() time.Time { return now }
	c.startDay = now.Format("2006-01-02")

	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.resizes) != 1 || orch.resizes[0] != "scorers=3" {
		t.Fatalf("resizes = %v, want [scorers=3]", orch.resizes)
	}

	// Within the rate-limit window nothing is re-sent.
	now = now.Add(time.Minute)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.resizes) != 1 {
		t.Errorf("rate limit ignored, resizes = %v", orch.resizes)
	}

	// Past the window the size already matches; reconcile is a no-op.
	now = now.Add(10 * time.Minute)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.resizes) != 1 {
		t.Errorf("idempotence broken, resizes = %v", orch.resizes)
	}
	if len(orch.getCalls) != 1 {
		t.Errorf("remote size should be fetched once, got %v", orch.getCalls)
	}
}

func TestTick_ScalesToZeroOutsideWindow(t *testing.T) {
	orch := &fakeOrchestrator{sizes: map[string]int{"scorers": 3}}
	c := testController(orch, "08:00", "19:30")

	now := at("03:00")
	c.Now = func() time.Time { return now }
	c.startDay = now.Format("2006-01-02")

	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.resizes) != 1 || orch.resizes[0] != "scorers=0" {
		t.Fatalf("resizes = %v, want [scorers=0]", orch.resizes)
	}
}

func TestTick_DayRollover(t *testing.T) {
	c := testController(nil, "08:00", "19:30")
	c.Now = func() time.Time { return at("00:05") }
	c.startDay = "2026-08-23"

	if err := c.Tick(context.Background()); !errors.Is(err, ErrDayRollover) {
		t.Errorf("err = %v, want ErrDayRollover", err)
	}
}

func TestTick_BadWindowSkips(t *testing.T) {
	orch := &fakeOrchestrator{sizes: map[string]int{"scorers": 3}}
	c := testController(orch, "garbage", "19:30")
	now := at("12:00")
	c.Now = func() time.Time { return now }
	c.startDay = now.Format("2006-01-02")

	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.resizes) != 0 || len(orch.getCalls) != 0 {
		t.Errorf("orchestrator touched despite bad window: %v %v", orch.resizes, orch.getCalls)
	}
}
