// Package metrics exposes Prometheus collectors for the enrichment
// pipeline and its API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineCompaniesTotal     *prometheus.CounterVec
	pipelineTaskRunsTotal      *prometheus.CounterVec
	pipelineTaskDuration       *prometheus.HistogramVec
	pipelineLockSkipsTotal     *prometheus.CounterVec
	pagesArchivedTotal         prometheus.Counter
	serpCreditsRemaining       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than
// once.
func Init() {
	once.Do(func() {
		pipelineCompaniesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadtrail_companies_processed_total",
				Help: "Companies processed per pipeline task, labeled by outcome status.",
			},
			[]string{"task", "status"},
		)

		pipelineTaskRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadtrail_task_runs_total",
				Help: "Task runs, labeled by task and outcome.",
			},
			[]string{"task", "outcome"},
		)

		pipelineTaskDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadtrail_task_duration_seconds",
				Help:    "Histogram of task run durations.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"task"},
		)

		pipelineLockSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadtrail_lock_skips_total",
				Help: "Scheduler triggers skipped because the task lock was held.",
			},
			[]string{"task"},
		)

		pagesArchivedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadtrail_pages_archived_total",
				Help: "Crawled pages written to the archive blob store.",
			},
		)

		serpCreditsRemaining = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadtrail_serp_credits_remaining",
				Help: "Last observed ZenSERP credit balance.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCompany counts one processed company for a task.
func ObserveCompany(task, status string) {
	pipelineCompaniesTotal.WithLabelValues(task, status).Inc()
}

// ObserveTaskRun records one finished task run.
func ObserveTaskRun(task, outcome string, duration time.Duration) {
	pipelineTaskRunsTotal.WithLabelValues(task, outcome).Inc()
	pipelineTaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// ObserveLockSkip counts a trigger skipped because the lock was held.
func ObserveLockSkip(task string) {
	pipelineLockSkipsTotal.WithLabelValues(task).Inc()
}

// ObservePageArchived counts an archived page.
func ObservePageArchived() {
	pagesArchivedTotal.Inc()
}

// SetSERPCredits records the last known ZenSERP balance.
func SetSERPCredits(credits float64) {
	serpCreditsRemaining.Set(credits)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
