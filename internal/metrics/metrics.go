package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the purchase subsystem counters.
type Metrics struct {
	webhookEvents      *prometheus.CounterVec
	purchasesCompleted *prometheus.CounterVec
	purchasesRefunded  *prometheus.CounterVec
	enrollmentsGranted prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Webhook events received, by provider and event type.",
		}, []string{"provider", "event_type"}),
		purchasesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchases_completed_total",
			Help: "Purchases that reached the completed state, by provider.",
		}, []string{"provider"}),
		purchasesRefunded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchases_refunded_total",
			Help: "Purchases that were refunded, by provider.",
		}, []string{"provider"}),
		enrollmentsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enrollments_granted_total",
			Help: "Enrollment fan-outs executed.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	prometheus.MustRegister(
		m.webhookEvents,
		m.purchasesCompleted,
		m.purchasesRefunded,
		m.enrollmentsGranted,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) RecordWebhookEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, eventType).Inc()
}

func (m *Metrics) RecordPurchaseCompleted(provider string) {
	if m == nil {
		return
	}
	m.purchasesCompleted.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordPurchaseRefunded(provider string) {
	if m == nil {
		return
	}
	m.purchasesRefunded.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordEnrollmentGranted() {
	if m == nil {
		return
	}
	m.enrollmentsGranted.Inc()
}

// GinMiddleware records request duration per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
