package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// BookingTransitions counts lifecycle changes by action (created, canceled, rescheduled, ...).
	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking lifecycle transitions.",
		},
		[]string{"action"},
	)

	RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retry_attempts_total",
			Help: "Retries scheduled after a retryable upstream failure.",
		},
		[]string{"operation"},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_token_refreshes_total",
			Help: "Provider access token refreshes by outcome.",
		},
		[]string{"provider", "result"},
	)

	ReaderSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reader_sessions_active",
		Help: "Reader sessions currently held by the registry.",
	})

	ReaderFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reader_frames_total",
			Help: "Inbound reader frames by payload type.",
		},
		[]string{"type"},
	)

	ReaderReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reader_reconnects_total",
			Help: "Reader reconnect scheduling by outcome.",
		},
		[]string{"result"},
	)

	CalendarSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_syncs_total",
			Help: "Calendar sync calls by action and outcome.",
		},
		[]string{"action", "result"},
	)
)

var initOnce sync.Once

// Init registers every collector in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			BookingTransitions,
			RetryAttempts,
			TokenRefreshes,
			ReaderSessions,
			ReaderFrames,
			ReaderReconnects,
			CalendarSyncs,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests. The route template is
// used as the path label to keep cardinality bounded.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	}
}

// Outcome is the label value used for success/failure counters.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
