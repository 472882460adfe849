package scheduler

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/fleet"
	"github.com/openfirewatch/firewatch/internal/imagesource"
	"github.com/openfirewatch/firewatch/internal/metrics"
	"github.com/openfirewatch/firewatch/internal/pipeline"
)

const (
	// MinCycle paces the fleet: a cycle that finishes early sleeps the
	// remainder so cameras are not hammered.
	MinCycle = 13 * time.Second

	// MaxInterval is how stale a camera's newest archive row may be
	// before it is fetched again.
	MaxInterval = time.Minute

	inactiveSleep = time.Minute

	// Counter name shared by all processes for camera distribution.
	sourcesCounter = "sources"

	statsEvery = 10 // cycles
)

// Scheduler drives the fetch/detect loop: it finds stale cameras,
// spreads them over a worker pool, joins the pool, paces the cycle and
// runs archive cleanup from its own goroutine.
type Scheduler struct {
	Models        data.Models
	Fetcher       *imagesource.Fetcher
	Pipeline      *pipeline.Pipeline
	GC            *imagesource.GC
	ModeFn        func(time.Time) fleet.Mode
	NumWorkers    int
	HeartbeatPath string
	TypeFilter    []string

	// LimitImages stops the run after that many frames (replay); zero
	// means unlimited. Seed shuffles camera order for replay sampling.
	// ReplayStart/ReplayEnd restrict processing to frames captured
	// inside the window; zero bounds pass everything.
	LimitImages int64
	Seed        string
	ReplayStart int64
	ReplayEnd   int64

	processed atomic.Int64
	cycles    int
	lastStats time.Time
}

// Run loops cycles until the context is cancelled or the image limit is
// reached.
func (s *Scheduler) Run(ctx context.Context) error {
	s.lastStats = time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if s.LimitImages > 0 && s.processed.Load() >= s.LimitImages {
			log.Printf("[Scheduler] image limit %d reached", s.LimitImages)
			return nil
		}
		if err := s.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Scheduler] cycle error: %v", err)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) error {
	start := time.Now()
	mode := s.ModeFn(start)
	metrics.FleetMode.Set(float64(mode.Ordinal()))

	if mode == fleet.ModeInactive {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(inactiveSleep):
		}
		return nil
	}

	cameras, err := s.Models.Cameras.GetActive(ctx, s.TypeFilter)
	if err != nil {
		return fmt.Errorf("list cameras: %w", err)
	}
	if s.Seed != "" {
		s.shuffle(cameras)
	}

	stale := s.staleCameras(ctx, cameras, start.Unix())
	claimed, err := s.claimStale(ctx, stale)
	if err != nil {
		return err
	}

	channels := make([]chan *data.Camera, s.NumWorkers)
	for i := range channels {
		channels[i] = make(chan *data.Camera, len(claimed))
	}
	for i, cam := range claimed {
		channels[i%s.NumWorkers] <- cam
	}
	for _, ch := range channels {
		close(ch)
	}

	metrics.WorkersActive.Set(float64(s.NumWorkers))
	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch chan *data.Camera) {
			defer wg.Done()
			s.drain(ctx, ch, mode)
		}(ch)
	}
	wg.Wait()

	elapsed := time.Since(start)
	metrics.RecordCycle(elapsed.Seconds())
	if elapsed < MinCycle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(MinCycle - elapsed):
		}
	}

	// Workers are joined, so no consumer holds an archive path.
	s.GC.Run(ctx, time.Now())

	s.cycles++
	if s.cycles%statsEvery == 0 {
		s.logStats(ctx)
	}
	s.touchHeartbeat()
	return nil
}

// staleCameras keeps cameras whose newest archive row is older than
// MaxInterval.
func (s *Scheduler) staleCameras(ctx context.Context, cameras []*data.Camera, now int64) []*data.Camera {
	var stale []*data.Camera
	for _, cam := range cameras {
		last, err := s.Models.Archive.LastFetchTime(ctx, cam.ID, now)
		if err != nil {
			log.Printf("[Scheduler] last fetch time for %s: %v", cam.ID, err)
			continue
		}
		if now-last > int64(MaxInterval.Seconds()) {
			stale = append(stale, cam)
		}
	}
	return stale
}

// claimStale claims cameras from the shared counter sequence so
// cooperating processes split the same stale set into disjoint subsets:
// each Increment yields a globally unique value, and the value picks the
// camera index. Indices drawn by other processes in the same window
// never come back here; a locally repeated index is skipped.
func (s *Scheduler) claimStale(ctx context.Context, stale []*data.Camera) ([]*data.Camera, error) {
	if len(stale) == 0 {
		return nil, nil
	}
	var claimed []*data.Camera
	seen := make(map[string]bool, len(stale))
	for range stale {
		prev, err := s.Models.Counters.Increment(ctx, sourcesCounter)
		if err != nil {
			return nil, fmt.Errorf("sources counter: %w", err)
		}
		cam := stale[int(prev%int64(len(stale)))]
		if seen[cam.ID] {
			continue
		}
		seen[cam.ID] = true
		claimed = append(claimed, cam)
	}
	return claimed, nil
}

// inReplayWindow reports whether a frame timestamp falls inside the
// configured replay bounds.
func (s *Scheduler) inReplayWindow(ts int64) bool {
	if s.ReplayStart > 0 && ts < s.ReplayStart {
		return false
	}
	if s.ReplayEnd > 0 && ts > s.ReplayEnd {
		return false
	}
	return true
}

// drain processes one worker's queue sequentially. In archive mode only
// the fetch runs; frames stay unprocessed for a later detect pass.
func (s *Scheduler) drain(ctx context.Context, ch chan *data.Camera, mode fleet.Mode) {
	for cam := range ch {
		if ctx.Err() != nil {
			return
		}
		frames, err := s.Fetcher.Fetch(ctx, cam, time.Now().Unix())
		if err != nil {
			metrics.FetchErrorsTotal.Inc()
			log.Printf("[Scheduler] fetch %s: %v", cam.ID, err)
			continue
		}
		if mode != fleet.ModeDetect {
			continue
		}
		for _, frame := range frames {
			if !s.inReplayWindow(frame.Timestamp) {
				continue
			}
			if s.LimitImages > 0 && s.processed.Load() >= s.LimitImages {
				return
			}
			outcome, err := s.Pipeline.Process(ctx, cam, frame)
			if err != nil {
				log.Printf("[Scheduler] process %s@%d: %v", frame.CameraID, frame.Timestamp, err)
			}
			metrics.RecordOutcome(string(outcome))
			if outcome == pipeline.OutcomeAlerted {
				metrics.AlertsPublishedTotal.Inc()
			}
			s.processed.Add(1)
		}
	}
}

func (s *Scheduler) logStats(ctx context.Context) {
	since := s.lastStats.Unix()
	s.lastStats = time.Now()
	images, _ := s.Models.Scores.CountImagesSince(ctx, since)
	segments, _ := s.Models.Scores.CountSince(ctx, since)
	positives, _ := s.Models.Scores.CountPositiveSince(ctx, since)
	probables, _ := s.Models.Probables.CountSince(ctx, since)
	detections, _ := s.Models.Detections.CountSince(ctx, since, true)
	log.Printf("[Scheduler] last %d cycles: images=%d segments=%d positives=%d probables=%d detections=%d",
		statsEvery, images, segments, positives, probables, detections)
}

func (s *Scheduler) touchHeartbeat() {
	if s.HeartbeatPath == "" {
		return
	}
	if err := os.WriteFile(s.HeartbeatPath, []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
		log.Printf("[Scheduler] heartbeat: %v", err)
	}
}

// shuffle reorders cameras deterministically from the configured seed.
func (s *Scheduler) shuffle(cameras []*data.Camera) {
	h := fnv.New64a()
	h.Write([]byte(s.Seed))
	var seed int64
	sum := h.Sum(nil)
	seed = int64(binary.BigEndian.Uint64(sum))
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(cameras), func(i, j int) {
		cameras[i], cameras[j] = cameras[j], cameras[i]
	})
}
