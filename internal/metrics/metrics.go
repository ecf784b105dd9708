// Package metrics provides Prometheus metrics for the scan engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sadopc/dirpie/internal/model"
)

// Metrics holds the engine collectors on a private registry. It implements
// scanner.Observer.
type Metrics struct {
	reg *prometheus.Registry

	jobsEnqueued  *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobsStale     *prometheus.CounterVec
	walkDuration  *prometheus.HistogramVec
	walkBytes     prometheus.Counter
	walkSkipped   *prometheus.CounterVec
	cacheEntries  prometheus.Gauge
	generation    prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		jobsEnqueued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirpie_jobs_enqueued_total",
				Help: "Scan jobs enqueued, by kind",
			},
			[]string{"kind"},
		),
		jobsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirpie_jobs_completed_total",
				Help: "Scan jobs whose walk finished for a live view, by kind",
			},
			[]string{"kind"},
		),
		jobsStale: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirpie_jobs_stale_total",
				Help: "Scan jobs dropped because the view changed, by stage",
			},
			[]string{"stage"},
		),
		walkDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirpie_walk_duration_seconds",
				Help:    "Subtree walk duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"kind"},
		),
		walkBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dirpie_walk_bytes_total",
				Help: "Bytes accounted by completed walks",
			},
		),
		walkSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirpie_walk_skipped_total",
				Help: "Entries skipped by walks, by reason",
			},
			[]string{"reason"},
		),
		cacheEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "dirpie_cache_entries",
				Help: "Paths held in the size cache",
			},
		),
		generation: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "dirpie_generation",
				Help: "Live view generation",
			},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) JobEnqueued(kind model.JobKind) {
	m.jobsEnqueued.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) JobStale(_ model.JobKind, stage string) {
	m.jobsStale.WithLabelValues(stage).Inc()
}

func (m *Metrics) JobCompleted(kind model.JobKind, elapsed time.Duration, bytes uint64, stats model.WalkStats) {
	m.jobsCompleted.WithLabelValues(kind.String()).Inc()
	m.walkDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
	m.walkBytes.Add(float64(bytes))

	skipped := map[model.ErrorKind]uint32{
		model.ErrAccessDenied:   stats.SkippedAccess,
		model.ErrPathInvalid:    stats.SkippedPath,
		model.ErrOther:          stats.SkippedOther,
		model.ErrReparseSkipped: stats.SkippedReparse,
	}
	for reason, n := range skipped {
		if n > 0 {
			m.walkSkipped.WithLabelValues(reason.String()).Add(float64(n))
		}
	}
}

func (m *Metrics) CacheSize(n int) {
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) GenerationChanged(gen uint64) {
	m.generation.Set(float64(gen))
}
