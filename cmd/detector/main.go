package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/openfirewatch/firewatch/internal/blob"
	"github.com/openfirewatch/firewatch/internal/classifier"
	"github.com/openfirewatch/firewatch/internal/composer"
	"github.com/openfirewatch/firewatch/internal/config"
	"github.com/openfirewatch/firewatch/internal/data"
	"github.com/openfirewatch/firewatch/internal/fleet"
	"github.com/openfirewatch/firewatch/internal/imagesource"
	"github.com/openfirewatch/firewatch/internal/metrics"
	"github.com/openfirewatch/firewatch/internal/notify"
	"github.com/openfirewatch/firewatch/internal/pipeline"
	"github.com/openfirewatch/firewatch/internal/scheduler"
	"github.com/openfirewatch/firewatch/internal/weather"
)

func main() {
	var (
		configPath   = flag.String("config", "settings.yaml", "settings file")
		archiveDir   = flag.String("archiveDir", "", "short-term image archive directory")
		numThreads   = flag.Int("numThreads", 4, "pipeline worker count")
		restrictType = flag.String("restrictType", "", "comma-separated camera type tags")
		heartbeat    = flag.String("heartbeat", "", "heartbeat file touched each cycle")
		noState      = flag.Bool("noState", false, "stateless replay: no score recording, no historical filter")
		policyName   = flag.String("policy", "threshold", "detection policy: threshold, diff, multi, always, never")
		startTime    = flag.String("startTime", "", "replay: skip frames captured before this instant (RFC 3339)")
		endTime      = flag.String("endTime", "", "replay: skip frames captured after this instant (RFC 3339)")
		limitImages  = flag.Int64("limitImages", 0, "stop after this many frames (0 = unlimited)")
		randomSeed   = flag.String("randomSeed", "", "hex seed for camera order shuffling")
		ffmpegPath   = flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	)
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Detector] load settings: %v", err)
	}
	if *archiveDir != "" {
		settings.ArchiveDir = *archiveDir
	}
	replayStart := parseReplayBound(*startTime, "startTime")
	replayEnd := parseReplayBound(*endTime, "endTime")
	if settings.ArchiveDir == "" {
		log.Fatalf("[Detector] archive directory not configured")
	}
	if err := os.MkdirAll(settings.ArchiveDir, 0o755); err != nil {
		log.Fatalf("[Detector] create archive dir: %v", err)
	}
	manager := config.NewManager(*configPath, settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	manager.StartWatcher(ctx)

	db, err := data.Open(settings.DSN())
	if err != nil {
		log.Fatalf("[Detector] database: %v", err)
	}
	defer db.Close()
	models := data.NewModels(db)

	nc, err := nats.Connect(settings.NATSURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		log.Fatalf("[Detector] nats: %v", err)
	}
	defer nc.Close()
	publisher := notify.NewNATSPublisher(nc, settings.AlertSubject, 5)

	var rdb *redis.Client
	if settings.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		defer rdb.Close()
	}

	store := blob.NewStore(settings.BlobRoot, settings.PublicURLBase)
	maps, err := composer.NewMapRenderer(store, 16)
	if err != nil {
		log.Fatalf("[Detector] map renderer: %v", err)
	}

	var weatherSvc *weather.Service
	if settings.WeatherURL != "" {
		model, err := weather.NewModel(settings.WeatherWeights, settings.WeatherBias)
		if err != nil {
			log.Fatalf("[Detector] weather model: %v", err)
		}
		weatherSvc = weather.NewService(
			weather.NewHTTPProvider(settings.WeatherURL, settings.WeatherKey),
			model, models.Weather, rdb, settings.WeatherURL)
	}

	scorer := classifier.NewHTTPScorer(settings.ScorerURL, settings.ModelID)
	policy, err := buildPolicy(*policyName, scorer, models.Scores, settings)
	if err != nil {
		log.Fatalf("[Detector] %v", err)
	}

	comp := &composer.Composer{
		Models:           models,
		Blob:             store,
		Maps:             maps,
		Weather:          weatherSvc,
		Publisher:        publisher,
		WorkDir:          os.TempDir(),
		FFmpegPath:       *ffmpegPath,
		WeatherThreshold: settings.WeatherThreshold,
		ProdTypes:        settings.ProdTypes,
	}

	pipe := &pipeline.Pipeline{
		Models:    models,
		Policy:    policy,
		Composer:  comp,
		Blob:      store,
		LandMask:  settings.LandMask,
		ModelID:   settings.ModelID,
		Stateless: *noState,
	}

	fetcher := imagesource.NewFetcher(models.Archive, settings.ArchiveDir)
	gc := imagesource.NewGC(models.Archive, settings.ArchiveDir, time.Hour)

	var orch fleet.Orchestrator
	if settings.OrchestratorURL != "" {
		orch = fleet.NewHTTPOrchestrator(settings.OrchestratorURL)
	}
	controller := fleet.NewController(manager, models, orch, settings.ArchiveDir)

	var typeFilter []string
	if *restrictType != "" {
		typeFilter = strings.Split(*restrictType, ",")
	}
	sched := &scheduler.Scheduler{
		Models:        models,
		Fetcher:       fetcher,
		Pipeline:      pipe,
		GC:            gc,
		ModeFn:        controller.ModeAt,
		NumWorkers:    *numThreads,
		HeartbeatPath: *heartbeat,
		TypeFilter:    typeFilter,
		LimitImages:   *limitImages,
		Seed:          *randomSeed,
		ReplayStart:   replayStart,
		ReplayEnd:     replayEnd,
	}

	go func() {
		if err := metrics.Serve(ctx, settings.ListenAddr); err != nil {
			log.Printf("[Detector] metrics server: %v", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- controller.Run(ctx) }()
	go func() { errCh <- sched.Run(ctx) }()

	err = <-errCh
	stop()
	if errors.Is(err, fleet.ErrDayRollover) {
		log.Printf("[Detector] day rollover, restarting")
	} else if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Detector] terminated: %v", err)
	}
	// Long-lived process: any exit asks the supervisor for a restart.
	os.Exit(1)
}

// parseReplayBound converts an RFC 3339 replay bound to unix seconds.
// An empty flag leaves the bound open.
func parseReplayBound(v, name string) int64 {
	if v == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		log.Fatalf("[Detector] %s: %v", name, err)
	}
	return t.Unix()
}

// buildPolicy assembles the detection policy selected on the command
// line. The verifier scorers for multi share the scorer endpoint but
// run their own model IDs.
func buildPolicy(name string, scorer classifier.Scorer, scores data.ScoreModel, settings *config.Settings) (classifier.Policy, error) {
	switch name {
	case "threshold":
		return classifier.NewHistThreshold(scorer, scores), nil
	case "diff":
		return classifier.NewDetectDiff(classifier.NewHistThreshold(scorer, scores)), nil
	case "multi":
		if len(settings.VerifierModels) == 0 {
			return nil, errors.New("policy multi needs verifier_models in settings")
		}
		verifiers := make([]classifier.Policy, len(settings.VerifierModels))
		for i, m := range settings.VerifierModels {
			verifiers[i] = classifier.NewHistThreshold(
				classifier.NewHTTPScorer(settings.ScorerURL, m), scores)
		}
		return classifier.NewDetectMulti(classifier.NewHistThreshold(scorer, scores), verifiers...), nil
	case "always":
		return classifier.DetectAlways{}, nil
	case "never":
		return classifier.DetectNever{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}
