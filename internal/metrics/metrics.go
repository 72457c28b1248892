package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_upstream_requests_total",
		Help: "Stats API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osutracker_upstream_request_duration_seconds",
		Help:    "Stats API request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})

	SnapshotsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_snapshots_appended_total",
		Help: "Snapshots appended to user histories",
	}, []string{"mode"})

	NormalizationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_normalization_failures_total",
		Help: "Upstream payloads rejected by the normalizer, by field",
	}, []string{"field"})

	BaselineLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_baseline_lookups_total",
		Help: "Baseline lookups by result (found, no_baseline, no_activity)",
	}, []string{"result"})

	CardsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_cards_rendered_total",
		Help: "Card render attempts by outcome",
	}, []string{"outcome"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osutracker_rate_limited_total",
		Help: "Commands rejected by the per-user interval gate",
	}, []string{"command"})
)
