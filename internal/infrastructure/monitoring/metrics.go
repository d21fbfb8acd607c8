package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Dispatch metrics
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	DispatchErrors   *prometheus.CounterVec
	DispatchTokens   *prometheus.CounterVec
	DispatchCost     *prometheus.CounterVec

	// Registry metrics
	ServicesByStatus *prometheus.GaugeVec
	HealthChecks     *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON health view
type Snapshot struct {
	TotalRequests   int64 `json:"totalRequests"`
	TotalErrors     int64 `json:"totalErrors"`
	TotalDispatches int64 `json:"totalDispatches"`
	FailedDispatch  int64 `json:"failedDispatches"`
}

// NewMetrics creates a metrics collector on its own Prometheus registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_total",
				Help: "Total number of dispatched operations",
			},
			[]string{"service", "operation", "status"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_dispatch_duration_seconds",
				Help:    "Dispatch duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "operation"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_errors_total",
				Help: "Total number of failed dispatches by error code",
			},
			[]string{"service", "operation", "code"},
		),
		DispatchTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_tokens_total",
				Help: "Tokens accounted to dispatched operations",
			},
			[]string{"service"},
		),
		DispatchCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_cost_total",
				Help: "Cost accounted to dispatched operations",
			},
			[]string{"service"},
		),

		ServicesByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_services",
				Help: "Registered services by status and location",
			},
			[]string{"status", "location"},
		),
		HealthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_health_checks_total",
				Help: "Health checks run against server services",
			},
			[]string{"service", "result"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gateway_uptime_seconds",
			Help: "Gateway uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler returns the Prometheus exposition handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordDispatch records a successful dispatch
func (m *Metrics) RecordDispatch(service, operation string, duration time.Duration, tokens int, cost float64) {
	m.DispatchTotal.WithLabelValues(service, operation, "success").Inc()
	m.DispatchDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	m.DispatchTokens.WithLabelValues(service).Add(float64(tokens))
	m.DispatchCost.WithLabelValues(service).Add(cost)

	m.mu.Lock()
	m.snapshot.TotalDispatches++
	m.mu.Unlock()
}

// RecordDispatchError records a failed dispatch
func (m *Metrics) RecordDispatchError(service, operation, code string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(service, operation, "error").Inc()
	m.DispatchDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	m.DispatchErrors.WithLabelValues(service, operation, code).Inc()

	m.mu.Lock()
	m.snapshot.TotalDispatches++
	m.snapshot.FailedDispatch++
	m.mu.Unlock()
}

// SetServiceCount sets the number of services in a status/location bucket
func (m *Metrics) SetServiceCount(status, location string, count int) {
	m.ServicesByStatus.WithLabelValues(status, location).Set(float64(count))
}

// RecordHealthCheck records the outcome of one health probe
func (m *Metrics) RecordHealthCheck(service string, healthy bool) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	m.HealthChecks.WithLabelValues(service, result).Inc()
}

// Snapshot returns the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
