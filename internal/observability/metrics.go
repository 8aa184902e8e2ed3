package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	remindersDispatchedTotal *prometheus.CounterVec
	dispatchFailedTotal     *prometheus.CounterVec
	dispatchDuration        *prometheus.HistogramVec
	dispatchInFlight        *prometheus.GaugeVec
	remindersRearmedTotal   *prometheus.CounterVec
	schedulerTickDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reminder_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reminder_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		remindersDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reminder_engine",
				Name:      "reminders_dispatched_total",
				Help:      "Total number of reminders delivered to the push sink.",
			},
			[]string{"kind"},
		),
		dispatchFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reminder_engine",
				Name:      "dispatch_failed_total",
				Help:      "Total number of reminder deliveries that failed, by reason.",
			},
			[]string{"kind", "reason"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reminder_engine",
				Name:      "dispatch_duration_seconds",
				Help:      "Push sink send duration in seconds grouped by kind.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		dispatchInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "reminder_engine",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight reminder dispatches grouped by kind.",
			},
			[]string{"kind"},
		),
		remindersRearmedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reminder_engine",
				Name:      "reminders_rearmed_total",
				Help:      "Total number of recurring reminders re-armed after a fire.",
			},
			[]string{"kind"},
		),
		schedulerTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "reminder_engine",
				Name:      "scheduler_tick_duration_seconds",
				Help:      "Duration of a full scheduler due-scan tick in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.remindersDispatchedTotal,
		m.dispatchFailedTotal,
		m.dispatchDuration,
		m.dispatchInFlight,
		m.remindersRearmedTotal,
		m.schedulerTickDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDispatched(kind string) {
	if m == nil {
		return
	}
	m.remindersDispatchedTotal.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) IncDispatchFailed(kind string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.dispatchFailedTotal.WithLabelValues(normalizeKind(kind), reasonLabel).Inc()
}

func (m *Metrics) ObserveDispatchDuration(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dispatchDuration.WithLabelValues(normalizeKind(kind)).Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight(kind string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) DecDispatchInFlight(kind string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeKind(kind)).Dec()
}

func (m *Metrics) IncRearmed(kind string) {
	if m == nil {
		return
	}
	m.remindersRearmedTotal.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) ObserveTickDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.schedulerTickDuration.Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeKind(kind string) string {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
