package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	// 业务指标
	CompletionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_completions_total",
			Help: "First-time completions by kind",
		},
		[]string{"kind"},
	)

	XPGranted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_xp_granted_total",
		Help: "Total XP granted",
	})

	GemsGranted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_gems_granted_total",
		Help: "Total gems granted",
	})

	QuotaRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_quota_rejections_total",
			Help: "Quiz submissions rejected by the daily quota",
		},
		[]string{"tier"},
	)

	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_badges_awarded_total",
			Help: "Badges awarded",
		},
		[]string{"badge"},
	)

	ConcurrentConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_concurrent_conflicts_total",
		Help: "Writes rejected by the optimistic version check",
	})

	CatalogCourses = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_courses",
		Help: "Courses in the current catalog snapshot",
	})

	CatalogRefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_refresh_failures_total",
		Help: "Failed catalog refreshes",
	})
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		CompletionCounter,
		XPGranted,
		GemsGranted,
		QuotaRejections,
		BadgesAwarded,
		ConcurrentConflicts,
		CatalogCourses,
		CatalogRefreshFailures,
	)
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
