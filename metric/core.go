package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// Metrics contains the core library API metrics shared by the gateway and the
// catalog services. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	BackendUp       *prometheus.GaugeVec

	// Catalog service metrics
	ServiceStatus   *prometheus.GaugeVec
	RPCRequests     *prometheus.CounterVec
	RPCDuration     *prometheus.HistogramVec
	StoreOperations *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		GatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "library",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of facade requests by outcome",
			},
			[]string{"facade", "kind", "operation", "outcome"},
		),

		GatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "library",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Facade request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"facade", "kind", "operation"},
		),

		BackendUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "library",
				Subsystem: "gateway",
				Name:      "backend_up",
				Help:      "Backend health as seen by the gateway (0=down, 1=up)",
			},
			[]string{"kind"},
		),

		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "library",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping)",
			},
			[]string{"service"},
		),

		RPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "library",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total number of RPC requests handled by status code",
			},
			[]string{"service", "method", "code"},
		),

		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "library",
				Subsystem: "rpc",
				Name:      "duration_seconds",
				Help:      "RPC handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method"},
		),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "library",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of store operations by outcome",
			},
			[]string{"kind", "operation", "outcome"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "library",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"component", "class"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.GatewayRequests,
		c.GatewayDuration,
		c.BackendUp,
		c.ServiceStatus,
		c.RPCRequests,
		c.RPCDuration,
		c.StoreOperations,
		c.ErrorsTotal,
	}
}

// Outcome labels an operation result: "ok", or the error class name.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errors.Classify(err).String()
}

// RecordGatewayRequest records a facade request and its duration
func (c *Metrics) RecordGatewayRequest(facade, kind, operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.GatewayRequests.WithLabelValues(facade, kind, operation, Outcome(err)).Inc()
	c.GatewayDuration.WithLabelValues(facade, kind, operation).Observe(duration.Seconds())
}

// RecordBackendHealth updates the gateway's view of a backend
func (c *Metrics) RecordBackendHealth(kind string, healthy bool) {
	if c == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.BackendUp.WithLabelValues(kind).Set(value)
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	if c == nil {
		return
	}
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordRPC records a handled RPC with its status code
func (c *Metrics) RecordRPC(service, method, code string, duration time.Duration) {
	if c == nil {
		return
	}
	c.RPCRequests.WithLabelValues(service, method, code).Inc()
	c.RPCDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordStoreOperation records a store operation outcome
func (c *Metrics) RecordStoreOperation(kind, operation string, err error) {
	if c == nil {
		return
	}
	c.StoreOperations.WithLabelValues(kind, operation, Outcome(err)).Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(component string, err error) {
	if c == nil || err == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(component, errors.Classify(err).String()).Inc()
}
