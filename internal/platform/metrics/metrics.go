package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the multiview service.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	streamsAddedTotal   prometheus.Counter
	streamsRemovedTotal prometheus.Counter
	capacityRejected    prometheus.Counter
	activeStreams       prometheus.Gauge
	wsClients           prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	streamsAddedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_streams_added_total",
		Help: "Total number of streams added to the layout",
	})
	streamsRemovedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_streams_removed_total",
		Help: "Total number of streams removed from the layout",
	})
	capacityRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_capacity_rejections_total",
		Help: "Total number of operations rejected because a column or the layout was full",
	})
	activeStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "multiview_active_streams",
		Help: "Number of streams currently in the layout",
	})
	wsClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "multiview_ws_clients",
		Help: "Number of connected player pages",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		streamsAddedTotal,
		streamsRemovedTotal,
		capacityRejected,
		activeStreams,
		wsClients,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		streamsAddedTotal:   streamsAddedTotal,
		streamsRemovedTotal: streamsRemovedTotal,
		capacityRejected:    capacityRejected,
		activeStreams:       activeStreams,
		wsClients:           wsClients,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncStreamsAdded increments the streams added counter.
func (m *Metrics) IncStreamsAdded() {
	m.streamsAddedTotal.Inc()
}

// AddStreamsRemoved adds n to the streams removed counter.
func (m *Metrics) AddStreamsRemoved(n int) {
	m.streamsRemovedTotal.Add(float64(n))
}

// IncCapacityRejections increments the capacity rejection counter.
func (m *Metrics) IncCapacityRejections() {
	m.capacityRejected.Inc()
}

// SetActiveStreams sets the active streams gauge.
func (m *Metrics) SetActiveStreams(n int) {
	m.activeStreams.Set(float64(n))
}

// SetWSClients sets the connected clients gauge.
func (m *Metrics) SetWSClients(n int) {
	m.wsClients.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active streams).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
