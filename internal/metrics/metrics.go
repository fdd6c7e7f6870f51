package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	viewsRecorded   *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	batchArticles   *prometheus.CounterVec
	lastBatchTS     *prometheus.GaugeVec
	eventsCleaned   prometheus.Counter
	taskFailures    *prometheus.CounterVec
	rankingFallback *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.viewsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "news",
		Name:      "views_recorded_total",
		Help:      "View notifications by whether they were counted",
	}, []string{"counted"})
	m.batchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "news",
		Name:      "score_batch_duration_seconds",
		Help:      "Time spent recomputing counters and scores",
		Buckets:   prometheus.DefBuckets,
	}, []string{"window"})
	m.batchArticles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "news",
		Name:      "score_batch_articles_total",
		Help:      "Articles processed by scoring passes by outcome",
	}, []string{"window", "status"})
	m.lastBatchTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "news",
		Name:      "score_batch_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last completed scoring pass",
	}, []string{"window"})
	m.eventsCleaned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "news",
		Name:      "view_events_cleaned_total",
		Help:      "Expired view events removed by cleanup",
	})
	m.taskFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "news",
		Name:      "scheduled_task_failures_total",
		Help:      "Scheduled task ticks that returned an error or panicked",
	}, []string{"task"})
	m.rankingFallback = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "news",
		Name:      "ranking_cache_fallback_total",
		Help:      "Ranking reads served by a full scan instead of the cache",
	}, []string{"ranking"})

	m.registry.MustRegister(
		m.viewsRecorded, m.batchDuration, m.batchArticles, m.lastBatchTS,
		m.eventsCleaned, m.taskFailures, m.rankingFallback,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ViewRecorded(counted bool) {
	if m == nil {
		return
	}
	m.viewsRecorded.WithLabelValues(strconv.FormatBool(counted)).Inc()
}

func (m *Metrics) BatchFinished(window string, updated, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(window).Observe(took.Seconds())
	m.batchArticles.WithLabelValues(window, "updated").Add(float64(updated))
	m.batchArticles.WithLabelValues(window, "failed").Add(float64(failed))
	m.lastBatchTS.WithLabelValues(window).SetToCurrentTime()
}

func (m *Metrics) EventsCleaned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsCleaned.Add(float64(n))
}

func (m *Metrics) TaskFailed(task string) {
	if m == nil {
		return
	}
	m.taskFailures.WithLabelValues(task).Inc()
}

func (m *Metrics) RankingFallback(ranking string) {
	if m == nil {
		return
	}
	m.rankingFallback.WithLabelValues(ranking).Inc()
}
