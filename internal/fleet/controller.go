package fleet

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openfirewatch/firewatch/internal/config"
	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/imagesource"
)

// ErrDayRollover signals that the calendar day changed since startup.
// The process exits with status 1 so the supervisor restarts it with a
// clean state.
var ErrDayRollover = errors.New("calendar day changed")

const (
	tickInterval  = 30 * time.Second
	resizeEvery   = 5 * time.Minute
	postWorkGrace = 80 * time.Minute

	scoreRetention = 21 * 24 * time.Hour
	archiveMaxAge  = time.Hour
)

// Controller runs the diurnal mode machine: it reconciles worker group
// sizes with the orchestrator, runs the daily post-work task after the
// detect window closes, and forces a daily restart.
type Controller struct {
	Config       *config.Manager
	Models       data.Models
	Orchestrator Orchestrator
	ArchiveDir   string

	// Now is the clock source, overridable in tests.
	Now func() time.Time

	startDay     string
	lastResize   time.Time
	groupSizes   map[string]int
	postWorkDays map[string]bool
}

func NewController(cfg *config.Manager, models data.Models, orch Orchestrator, archiveDir string) *Controller {
	return &Controller{
		Config:       cfg,
		Models:       models,
		Orchestrator: orch,
		ArchiveDir:   archiveDir,
		Now:          time.Now,
		groupSizes:   make(map[string]int),
		postWorkDays: make(map[string]bool),
	}
}

// ModeAt classifies an instant against the currently configured detect
// window. A malformed window logs and degrades to inactive.
func (c *Controller) ModeAt(now time.Time) Mode {
	s := c.Config.Current()
	w, err := ParseWindow(s.DetectStart, s.DetectEnd)
	if err != nil {
		log.Printf("[Fleet] bad detect window: %v", err)
		return ModeInactive
	}
	return w.ModeAt(now)
}

// Run ticks the controller until the context is cancelled or the day
// rolls over.
func (c *Controller) Run(ctx context.Context) error {
	c.startDay = c.Now().Format("2006-01-02")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		if err := c.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one controller iteration. Configuration errors are logged
// and skipped; they must not kill the controller.
func (c *Controller) Tick(ctx context.Context) error {
	now := c.Now()
	if day := now.Format("2006-01-02"); c.startDay != "" && day != c.startDay {
		return ErrDayRollover
	}

	s := c.Config.Current()
	w, err := ParseWindow(s.DetectStart, s.DetectEnd)
	if err != nil {
		log.Printf("[Fleet] bad detect window, skipping tick: %v", err)
		return nil
	}
	mode := w.ModeAt(now)

	c.reconcileGroups(ctx, s, mode, now)

	if mode == ModeInactive && w.PostWorkAt(now, postWorkGrace) {
		day := now.Format("2006-01-02")
		if !c.postWorkDays[day] {
			c.postWorkDays[day] = true
			c.runPostWork(ctx, s, now)
		}
	}
	return nil
}

// reconcileGroups drives every configured group to its target size:
// the configured target during detect, zero otherwise. Calls are
// rate-limited and skipped when the remote size already matches.
func (c *Controller) reconcileGroups(ctx context.Context, s *config.Settings, mode Mode, now time.Time) {
	if c.Orchestrator == nil || len(s.DetectGroups) == 0 {
		return
	}
	if now.Sub(c.lastResize) < resizeEvery {
		return
	}
	c.lastResize = now

	for _, g := range s.DetectGroups {
		target := 0
		if mode == ModeDetect {
			target = g.Target
		}
		current, ok := c.groupSizes[g.Name]
		if !ok {
			remote, err := c.Orchestrator.GetGroup(ctx, g.Name)
			if err != nil {
				log.Printf("[Fleet] get group %s: %v", g.Name, err)
				continue
			}
			current = remote
			c.groupSizes[g.Name] = remote
		}
		if current == target {
			continue
		}
		if err := c.Orchestrator.Resize(ctx, g.Name, target); err != nil {
			log.Printf("[Fleet] resize group %s to %d: %v", g.Name, target, err)
			continue
		}
		log.Printf("[Fleet] resized group %s: %d -> %d", g.Name, current, target)
		c.groupSizes[g.Name] = target
	}
}

// runPostWork computes the daily summary and prunes aged data. Safe to
// re-run: the stats insert is guarded by an existence check and the
// deletes are cutoff-based.
func (c *Controller) runPostWork(ctx context.Context, s *config.Settings, now time.Time) {
	log.Printf("[Fleet] running daily post-work")
	date := now.Format("2006-01-02")
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Unix()

	exists, err := c.Models.Stats.ExistsForDate(ctx, date)
	if err != nil {
		log.Printf("[Fleet] stats existence check: %v", err)
	} else if !exists {
		stats := data.DailyStats{Date: date}
		stats.Images, _ = c.Models.Scores.CountImagesSince(ctx, midnight)
		stats.AllSegments, _ = c.Models.Scores.CountSince(ctx, midnight)
		stats.PositiveSegments, _ = c.Models.Scores.CountPositiveSince(ctx, midnight)
		stats.Probables, _ = c.Models.Probables.CountSince(ctx, midnight)
		stats.Detections, _ = c.Models.Detections.CountSince(ctx, midnight, true)
		stats.Alerts, _ = c.Models.Alerts.CountSince(ctx, midnight)
		if cams, err := c.Models.Cameras.GetActive(ctx, s.ProdTypes); err == nil {
			stats.ProdCamsCount = int64(len(cams))
		}
		stats.ProdAlerts = stats.Alerts
		if err := c.Models.Stats.InsertDaily(ctx, stats); err != nil {
			log.Printf("[Fleet] insert daily stats: %v", err)
		}
	}

	if n, err := c.Models.Scores.DeleteOlderThan(ctx, now.Add(-scoreRetention).Unix()); err != nil {
		log.Printf("[Fleet] score retention: %v", err)
	} else if n > 0 {
		log.Printf("[Fleet] pruned %d aged scores", n)
	}

	if n, err := c.Models.Archive.DeleteOlderThan(ctx, now.Add(-archiveMaxAge).Unix()); err != nil {
		log.Printf("[Fleet] archive retention: %v", err)
	} else if n > 0 {
		log.Printf("[Fleet] pruned %d aged archive rows", n)
	}

	if c.ArchiveDir != "" {
		if err := imagesource.PurgeDir(c.ArchiveDir); err != nil {
			log.Printf("[Fleet] purge archive dir: %v", err)
		}
	}
}
