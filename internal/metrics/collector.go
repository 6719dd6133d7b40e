// Package metrics exposes environment activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/napolitain/factory-env/internal/models"
	"github.com/napolitain/factory-env/internal/resolver"
)

const (
	// Namespace for all metrics
	namespace = "factory"
	// Subsystem for environment metrics
	subsystem = "env"
)

// NewRegistry creates a dedicated registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// EpisodeMetricsCollector records resolver steps and session counts.
// It is safe for concurrent use by many environments.
type EpisodeMetricsCollector struct {
	steps          *prometheus.CounterVec
	purchases      *prometheus.CounterVec
	waitSeconds    prometheus.Histogram
	reward         prometheus.Histogram
	episodes       prometheus.Counter
	activeSessions prometheus.Gauge
}

var _ resolver.Recorder = (*EpisodeMetricsCollector)(nil)

// NewEpisodeMetricsCollector creates a new collector
func NewEpisodeMetricsCollector() *EpisodeMetricsCollector {
	return &EpisodeMetricsCollector{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "steps_total",
				Help:      "Total resolved steps by choice",
			},
			[]string{"choice"},
		),
		purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "purchases_total",
				Help:      "Purchase attempts by facility and result",
			},
			[]string{"facility", "result"},
		),
		waitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wait_seconds",
				Help:      "Simulated seconds advanced per step",
				Buckets:   []float64{0, 1, 10, 60, 300, 900, 3600, 14400},
			},
		),
		reward: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reward",
				Help:      "Per-step reward",
				Buckets:   []float64{0, 10, 100, 1000, 10000, 100000},
			},
		),
		episodes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "episodes_total",
				Help:      "Total episode resets",
			},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_sessions",
				Help:      "Currently connected remote sessions",
			},
		),
	}
}

// Register adds every metric to reg
func (c *EpisodeMetricsCollector) Register(reg prometheus.Registerer) error {
	metrics := []prometheus.Collector{
		c.steps,
		c.purchases,
		c.waitSeconds,
		c.reward,
		c.episodes,
		c.activeSessions,
	}

	for _, metric := range metrics {
		if err := reg.Register(metric); err != nil {
			return err
		}
	}

	// Zero-valued series so rate() works from the first scrape
	for _, ch := range models.AllChoices() {
		c.steps.WithLabelValues(ch.String())
	}
	for _, ft := range models.AllFacilityTypes() {
		c.purchases.WithLabelValues(string(ft), "success")
		c.purchases.WithLabelValues(string(ft), "failed")
	}
	return nil
}

// ObserveReset counts a new episode
func (c *EpisodeMetricsCollector) ObserveReset() {
	c.episodes.Inc()
}

// ObserveStep records one resolved choice
func (c *EpisodeMetricsCollector) ObserveStep(o resolver.Outcome) {
	c.steps.WithLabelValues(o.Choice.String()).Inc()
	c.waitSeconds.Observe(o.Wait)
	c.reward.Observe(o.Reward)

	if !o.Attempted {
		return
	}
	ft, ok := o.Choice.Facility()
	if !ok {
		return
	}
	c.purchases.WithLabelValues(string(ft), purchaseResult(o)).Inc()
}

// SessionOpened increments the active session gauge
func (c *EpisodeMetricsCollector) SessionOpened() {
	c.activeSessions.Inc()
}

// ActiveSessions exposes the session gauge
func (c *EpisodeMetricsCollector) ActiveSessions() prometheus.Gauge {
	return c.activeSessions
}

// SessionClosed decrements the active session gauge
func (c *EpisodeMetricsCollector) SessionClosed() {
	c.activeSessions.Dec()
}

func purchaseResult(o resolver.Outcome) string {
	if o.Purchased {
		return "success"
	}
	return "failed"
}
