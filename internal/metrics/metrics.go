// Package metrics provides Prometheus metrics for organizer runs and
// bet-builder gate fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// Gate fetch results.
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchError       = "error"
	FetchSuperseded  = "superseded"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Organizer metrics
	OrganizeRuns     *prometheus.CounterVec
	OrganizeDuration prometheus.Histogram
	OrganizersBuilt  *prometheus.CounterVec

	// Gate metrics
	GateFetches       *prometheus.CounterVec
	GateFetchDuration prometheus.Histogram
	GateDedupSkips    prometheus.Counter

	// Bus metrics
	BusMessages *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "marketgroups"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OrganizeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "organize_runs_total",
			Help:      "Total number of organize runs by result",
		}, []string{"result"}),
		OrganizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "organize_duration_seconds",
			Help:      "Time spent organizing one market group",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		OrganizersBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "organizers_total",
			Help:      "Total number of organizers produced by kind",
		}, []string{"kind"}),

		GateFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "betbuilder",
			Name:      "fetches_total",
			Help:      "Total number of grayout fetches by result",
		}, []string{"result"}),
		GateFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "betbuilder",
			Name:      "fetch_duration_seconds",
			Help:      "Grayout fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		GateDedupSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "betbuilder",
			Name:      "dedup_skips_total",
			Help:      "Selection notifications ignored because the selection list did not change",
		}),

		BusMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bus_messages_total",
			Help:      "Bus messages handled by channel and result",
		}, []string{"channel", "result"}),
	}
}

// ObserveOrganize records one successful organize run.
func (m *Metrics) ObserveOrganize(d time.Duration, organizers []domain.Organizer) {
	if m == nil {
		return
	}
	m.OrganizeRuns.WithLabelValues("ok").Inc()
	m.OrganizeDuration.Observe(d.Seconds())
	for _, o := range organizers {
		m.OrganizersBuilt.WithLabelValues(string(o.Kind)).Inc()
	}
}

// OrganizeFailed records an organize run that could not load its input.
func (m *Metrics) OrganizeFailed() {
	if m == nil {
		return
	}
	m.OrganizeRuns.WithLabelValues("error").Inc()
}

// ObserveGateFetch records one grayout fetch.
func (m *Metrics) ObserveGateFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.GateFetches.WithLabelValues(result).Inc()
	m.GateFetchDuration.Observe(d.Seconds())
}

// GateDedupSkipped records a selection notification that did not change
// the selection list.
func (m *Metrics) GateDedupSkipped() {
	if m == nil {
		return
	}
	m.GateDedupSkips.Inc()
}

// BusMessage records one handled bus message.
func (m *Metrics) BusMessage(channel, result string) {
	if m == nil {
		return
	}
	m.BusMessages.WithLabelValues(channel, result).Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
