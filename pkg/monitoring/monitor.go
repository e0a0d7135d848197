package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_sweep_runs_total",
			Help: "Lifecycle sweeps executed, by outcome",
		},
		[]string{"outcome"},
	)

	SweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_sweep_transitions_total",
			Help: "Assessment status transitions applied by the sweep, by target status",
		},
		[]string{"to"},
	)

	SweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_sweep_failures_total",
			Help: "Per-assessment transition writes that failed and were deferred to the next tick",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifecycle_sweep_duration_seconds",
			Help:    "Duration of a lifecycle sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	GradingResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_grading_total",
			Help: "Submission grading attempts, by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SweepRuns,
			SweepTransitions,
			SweepFailures,
			SweepDuration,
			GradingResults,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
