package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_http_requests_total",
			Help: "Total number of HTTP requests processed by the stub server.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_client_api_requests_total",
			Help: "Total number of REST calls issued by the client.",
		},
		[]string{"method", "outcome"},
	)
	wsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_client_ws_connected",
			Help: "Whether the client channel is currently connected (0 or 1).",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_ws_events_total",
			Help: "Total number of socket events by name and direction.",
		},
		[]string{"event", "direction"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_ws_active_connections",
			Help: "Number of active websocket connections on the stub server.",
		},
	)
	optimisticOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_client_optimistic_ops_total",
			Help: "Optimistic UI operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		apiRequestsTotal,
		wsConnected,
		wsEventsTotal,
		wsActiveConnections,
		optimisticOpsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies on the stub server.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncAPIRequest(method, outcome string) {
	apiRequestsTotal.WithLabelValues(method, outcome).Inc()
}

func SetWSConnected(connected bool) {
	if connected {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}

func IncWSEvent(event, direction string) {
	wsEventsTotal.WithLabelValues(event, direction).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncOptimisticOp(op, outcome string) {
	optimisticOpsTotal.WithLabelValues(op, outcome).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
