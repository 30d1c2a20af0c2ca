package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

// RunMetrics exports one set of counters per live sync cycle.
type RunMetrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	fixturesPolled  prometheus.Counter
	providerSkipped prometheus.Counter
	matchFailures   prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	pushesTotal     *prometheus.CounterVec
	orphanScores    prometheus.Gauge
	lastRunTime     prometheus.Gauge
}

// NewRunMetrics registers the run metrics plus Go and process collectors on
// a private registry.
func NewRunMetrics(namespace string) (*RunMetrics, error) {
	registry := prometheus.NewRegistry()
	m := &RunMetrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_runs_total",
			Help:      "Live sync cycles by outcome status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "live_sync_run_duration_seconds",
			Help:      "Wall time of completed live sync cycles.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}),
		fixturesPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_fixtures_polled_total",
			Help:      "Score provider fetches attempted.",
		}),
		providerSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_provider_skipped_total",
			Help:      "Fixtures skipped because the score provider backed off or failed.",
		}),
		matchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_match_failures_total",
			Help:      "Fixtures whose reconcile or persist step failed.",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_events_total",
			Help:      "Notification events detected by kind.",
		}, []string{"kind"}),
		pushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sync_pushes_total",
			Help:      "Per-user push outcomes.",
		}, []string{"outcome"}),
		orphanScores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sync_orphan_scores",
			Help:      "Live score rows in the window with no resolved fixture, last cycle.",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sync_last_run_timestamp_seconds",
			Help:      "Unix time of the last observed cycle.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.runsTotal, m.runDuration, m.fixturesPolled, m.providerSkipped, m.matchFailures,
		m.eventsTotal, m.pushesTotal, m.orphanScores, m.lastRunTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

func (m *RunMetrics) ObserveRun(result usecase.RunResult, elapsed time.Duration) {
	status := result.Status
	if status == "" {
		status = "failed"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.lastRunTime.SetToCurrentTime()
	if status == usecase.RunStatusSkipped {
		return
	}

	m.runDuration.Observe(elapsed.Seconds())
	m.fixturesPolled.Add(float64(result.FixturesPolled))
	m.providerSkipped.Add(float64(result.ProviderSkipped))
	m.matchFailures.Add(float64(result.MatchFailures))
	m.orphanScores.Set(float64(result.OrphanScores))
	for kind, count := range result.Events {
		m.eventsTotal.WithLabelValues(kind).Add(float64(count))
	}
	m.pushesTotal.WithLabelValues("sent").Add(float64(result.Notifications.Sent))
	m.pushesTotal.WithLabelValues("partial").Add(float64(result.Notifications.Partial))
	m.pushesTotal.WithLabelValues("duplicate").Add(float64(result.Notifications.Duplicate))
	m.pushesTotal.WithLabelValues("no_device").Add(float64(result.Notifications.NoDevice))
	m.pushesTotal.WithLabelValues("failed").Add(float64(result.Notifications.Failed))
}

// Handler serves the private registry in the Prometheus text format.
func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}
