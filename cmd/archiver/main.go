package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/openfirewatch/firewatch/internal/config"
	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/fleet"
	"github.com/openfirewatch/firewatch/internal/imagesource"
	"github.com/openfirewatch/firewatch/internal/metrics"
	"github.com/openfirewatch/firewatch/internal/scheduler"
)

// The archiver keeps the short-term image archive warm without running
// detection: PTZ frames land here for a detector process to consume,
// and the margin around the detect window gets covered.
func main() {
	var (
		configPath   = flag.String("config", "settings.yaml", "settings file")
		archiveDir   = flag.String("archiveDir", "", "short-term image archive directory")
		numThreads   = flag.Int("numThreads", 2, "fetch worker count")
		restrictType = flag.String("restrictType", "", "comma-separated camera type tags")
		heartbeat    = flag.String("heartbeat", "", "heartbeat file touched each cycle")
		startTime    = flag.String("startTime", "", "override detect window start (HH:MM)")
		endTime      = flag.String("endTime", "", "override detect window end (HH:MM)")
	)
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Archiver] load settings: %v", err)
	}
	if *archiveDir != "" {
		settings.ArchiveDir = *archiveDir
	}
	if *startTime != "" {
		settings.DetectStart = *startTime
	}
	if *endTime != "" {
		settings.DetectEnd = *endTime
	}
	if settings.ArchiveDir == "" {
		log.Fatalf("[Archiver] archive directory not configured")
	}
	if err := os.MkdirAll(settings.ArchiveDir, 0o755); err != nil {
		log.Fatalf("[Archiver] create archive dir: %v", err)
	}
	manager := config.NewManager(*configPath, settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	manager.StartWatcher(ctx)

	db, err := data.Open(settings.DSN())
	if err != nil {
		log.Fatalf("[Archiver] database: %v", err)
	}
	defer db.Close()
	models := data.NewModels(db)

	fetcher := imagesource.NewFetcher(models.Archive, settings.ArchiveDir)
	gc := imagesource.NewGC(models.Archive, settings.ArchiveDir, time.Hour)
	controller := fleet.NewController(manager, models, nil, settings.ArchiveDir)

	var typeFilter []string
	if *restrictType != "" {
		typeFilter = strings.Split(*restrictType, ",")
	}
	sched := &scheduler.Scheduler{
		Models:        models,
		Fetcher:       fetcher,
		GC:            gc,
		ModeFn:        archiveOnly(controller),
		NumWorkers:    *numThreads,
		HeartbeatPath: *heartbeat,
		TypeFilter:    typeFilter,
	}

	go func() {
		if err := metrics.Serve(ctx, settings.ListenAddr); err != nil {
			log.Printf("[Archiver] metrics server: %v", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- controller.Run(ctx) }()
	go func() { errCh <- sched.Run(ctx) }()

	err = <-errCh
	stop()
	if errors.Is(err, fleet.ErrDayRollover) {
		log.Printf("[Archiver] day rollover, restarting")
	} else if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Archiver] terminated: %v", err)
	}
	os.Exit(1)
}

// archiveOnly caps the fleet mode at archive so the scheduler never
// invokes a detection pipeline this process does not have.
func archiveOnly(c *fleet.Controller) func(time.Time) fleet.Mode {
	return func(now time.Time) fleet.Mode {
		if c.ModeAt(now) == fleet.ModeInactive {
			return fleet.ModeInactive
		}
		return fleet.ModeArchive
	}
}
