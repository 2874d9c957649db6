package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "office_dashboard"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "mutations_total",
			Help:      "Document mutations by kind, operation and outcome.",
		},
		[]string{"kind", "op", "outcome"},
	)

	subscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscriptions",
			Help:      "Active live-query subscriptions.",
		},
	)

	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dropped_events_total",
			Help:      "Change events dropped because a subscriber buffer was full.",
		},
	)

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Open websocket connections.",
		},
	)

	throttledMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "throttled_messages_total",
			Help:      "Inbound websocket messages rejected by the per-connection limiter.",
		},
	)

	responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "responses_total",
			Help:      "Responses collected from public pages.",
		},
		[]string{"type"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		mutations,
		subscriptions,
		droppedEvents,
		connections,
		throttledMessages,
		responses,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordMutation counts a document mutation.
func RecordMutation(kind, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutations.WithLabelValues(kind, op, outcome).Inc()
}

// SubscriptionOpened and SubscriptionClosed track live queries.
func SubscriptionOpened() { subscriptions.Inc() }
func SubscriptionClosed() { subscriptions.Dec() }

// EventDropped counts a change event lost to a full subscriber buffer.
func EventDropped() { droppedEvents.Inc() }

// ConnectionOpened and ConnectionClosed track websocket connections.
func ConnectionOpened() { connections.Inc() }
func ConnectionClosed() { connections.Dec() }

// MessageThrottled counts an inbound message dropped by rate limiting.
func MessageThrottled() { throttledMessages.Inc() }

// ResponseCollected counts a stored page response.
func ResponseCollected(kind string) { responses.WithLabelValues(kind).Inc() }

// JobRun counts a scheduler job run.
func JobRun(job string, err error) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
}
