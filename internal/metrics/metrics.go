package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSize       *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Database metrics
	DatabaseOperationDuration *prometheus.HistogramVec
	DatabaseOperationsTotal   *prometheus.CounterVec

	// Realtime metrics
	WebSocketMessagesTotal *prometheus.CounterVec
	RelayMessagesTotal     *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	*ApplicationMetrics
}

var (
	instance *Metrics
	once     sync.Once

	gaugesOnce sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_size_bytes",
					Help:    "HTTP request body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			// Rate limiting metrics
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			// Database metrics
			DatabaseOperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_operation_duration_seconds",
					Help:    "MongoDB operation latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"operation", "database"},
			),
			DatabaseOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_operations_total",
					Help: "Total number of MongoDB operations",
				},
				[]string{"operation", "database", "status"},
			),

			// Realtime metrics
			WebSocketMessagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_total",
					Help: "Total number of websocket messages by direction and type",
				},
				[]string{"direction", "type"},
			),
			RelayMessagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_messages_total",
					Help: "Total number of messages passed through the Redis relay",
				},
				[]string{"direction", "status"},
			),

			// Error metrics
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by code",
				},
				[]string{"code", "endpoint"},
			),

			ApplicationMetrics: initializeApplicationMetrics(),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

// RegisterRealtimeGauges exposes live connection and room counts. Only the
// first call registers; later calls are ignored.
func RegisterRealtimeGauges(connections, rooms func() float64) {
	gaugesOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of open websocket connections on this instance",
		}, connections)
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "websocket_active_rooms",
			Help: "Number of post rooms with at least one member",
		}, rooms)
	})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
