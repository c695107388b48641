package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the scheduling engine. All methods are nil-safe so
// services can run without instrumentation in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	scheduleRuns    prometheus.Counter
	scheduleTime    prometheus.Histogram
	examsScheduled  prometheus.Counter
	examsFailed     prometheus.Counter
	supervisorRuns  prometheus.Counter
	assignmentsMade prometheus.Counter
	conflictsFound  *prometheus.GaugeVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	scheduleRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total auto-scheduling passes",
	})

	scheduleTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_run_duration_seconds",
		Help:    "Duration of auto-scheduling passes",
		Buckets: prometheus.DefBuckets,
	})

	examsScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exams_scheduled_total",
		Help: "Exams placed by the scheduler",
	})

	examsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exams_infeasible_total",
		Help: "Exams the scheduler could not place",
	})

	supervisorRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "supervisor_runs_total",
		Help: "Total supervisor assignment passes",
	})

	assignmentsMade := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "supervisor_assignments_total",
		Help: "Supervisor assignments created",
	})

	conflictsFound := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_conflicts",
		Help: "Conflicts detected in the most recent report per session",
	}, []string{"session_id", "severity"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		scheduleRuns, scheduleTime, examsScheduled, examsFailed,
		supervisorRuns, assignmentsMade, conflictsFound, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		scheduleRuns:    scheduleRuns,
		scheduleTime:    scheduleTime,
		examsScheduled:  examsScheduled,
		examsFailed:     examsFailed,
		supervisorRuns:  supervisorRuns,
		assignmentsMade: assignmentsMade,
		conflictsFound:  conflictsFound,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveScheduleRun records one auto-scheduling pass.
func (m *MetricsService) ObserveScheduleRun(duration time.Duration, scheduled, failed int) {
	if m == nil {
		return
	}
	m.scheduleRuns.Inc()
	m.scheduleTime.Observe(duration.Seconds())
	m.examsScheduled.Add(float64(scheduled))
	m.examsFailed.Add(float64(failed))
}

// ObserveSupervisorRun records one supervisor assignment pass.
func (m *MetricsService) ObserveSupervisorRun(assignments int) {
	if m == nil {
		return
	}
	m.supervisorRuns.Inc()
	m.assignmentsMade.Add(float64(assignments))
}

// RecordConflicts publishes the latest conflict counts for a session.
func (m *MetricsService) RecordConflicts(sessionID string, bySeverity map[string]int) {
	if m == nil {
		return
	}
	for severity, count := range bySeverity {
		m.conflictsFound.WithLabelValues(sessionID, severity).Set(float64(count))
	}
}
