package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events offered to the Kafka producer, by topic and outcome",
		},
		[]string{"topic", "status"},
	)

	eventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Messages handled by the consumer group, by topic and outcome",
		},
		[]string{"topic", "status"},
	)

	factRowsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fact_rows_inserted_total",
			Help: "Fact rows written to the analytics store, by event type",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(eventsPublishedTotal)
	prometheus.MustRegister(eventsConsumedTotal)
	prometheus.MustRegister(factRowsInsertedTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordEventPublished(topic string, ok bool) {
	status := "published"
	if !ok {
		status = "dropped"
	}
	eventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

func RecordEventConsumed(topic, status string) {
	eventsConsumedTotal.WithLabelValues(topic, status).Inc()
}

func RecordFactInserted(eventType uint8) {
	factRowsInsertedTotal.WithLabelValues(strconv.Itoa(int(eventType))).Inc()
}
