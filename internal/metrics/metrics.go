package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are low-cardinality: outcomes and modes, never camera ids.

var (
	// ImagesProcessedTotal counts frames by pipeline outcome.
	ImagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_images_processed_total",
			Help: "Frames processed by pipeline outcome",
		},
		[]string{"outcome"},
	)

	// CycleDuration tracks full scheduler cycle durations.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firewatch_cycle_duration_seconds",
			Help:    "Scheduler cycle duration in seconds",
			Buckets: []float64{1, 5, 10, 13, 20, 30, 60, 120},
		},
	)

	// ScorerLatency tracks classifier service round trips.
	ScorerLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firewatch_scorer_latency_seconds",
			Help:    "Tile scoring round trip latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// SegmentsScoredTotal counts tiles sent through the classifier.
	SegmentsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_segments_scored_total",
			Help: "Total image tiles scored",
		},
	)

	// PositiveSegmentsTotal counts tiles scoring above the base threshold.
	PositiveSegmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_positive_segments_total",
			Help: "Total tiles scoring above 0.5",
		},
	)

	// FetchErrorsTotal counts failed camera fetches.
	FetchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_fetch_errors_total",
			Help: "Total failed camera image fetches",
		},
	)

	// AlertsPublishedTotal counts notifications pushed to the bus.
	AlertsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_alerts_published_total",
			Help: "Total alert notifications published",
		},
	)

	// FleetMode is the current diurnal mode (0=inactive, 1=archive, 2=detect).
	FleetMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_fleet_mode",
			Help: "Current fleet mode (0=inactive, 1=archive, 2=detect)",
		},
	)

	// WorkersActive is the current size of the worker pool.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_workers_active",
			Help: "Current number of pipeline workers",
		},
	)
)

func RecordOutcome(outcome string) {
	ImagesProcessedTotal.WithLabelValues(outcome).Inc()
}

func RecordCycle(seconds float64) {
	CycleDuration.Observe(seconds)
}
