package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricecollector"

// Tick results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all Prometheus metrics for the price collector.
type Metrics struct {
	TicksTotal           *prometheus.CounterVec // labels: result
	PointsWrittenTotal   prometheus.Counter
	PointsFailedTotal    prometheus.Counter
	CyclesTotal          *prometheus.CounterVec // labels: state
	FetchDuration        prometheus.Histogram
	NextWakeTimestamp    prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Fetch-and-persist attempts by result",
		}, []string{"result"}),
		PointsWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_written_total",
			Help:      "Price points accepted by the time-series store",
		}),
		PointsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_failed_total",
			Help:      "Price points the time-series store rejected",
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Daily collection cycles by final state",
		}, []string{"state"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Pricing API request latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NextWakeTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_wake_timestamp_seconds",
			Help:      "Unix time of the next scheduled cycle",
		}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful tick",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.TicksTotal,
		m.PointsWrittenTotal,
		m.PointsFailedTotal,
		m.CyclesTotal,
		m.FetchDuration,
		m.NextWakeTimestamp,
		m.LastSuccessTimestamp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFetch records the duration of one pricing API request.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// ObserveTick counts a tick outcome.
func (m *Metrics) ObserveTick(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.TicksTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	m.TicksTotal.WithLabelValues(ResultSuccess).Inc()
	m.LastSuccessTimestamp.SetToCurrentTime()
}

// ObservePoint counts one price point write.
func (m *Metrics) ObservePoint(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.PointsWrittenTotal.Inc()
		return
	}
	m.PointsFailedTotal.Inc()
}

// ObserveCycle counts a finished daily cycle by its final state.
func (m *Metrics) ObserveCycle(state string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(state).Inc()
}

// SetNextWake publishes the next scheduled wake instant.
func (m *Metrics) SetNextWake(t time.Time) {
	if m == nil {
		return
	}
	m.NextWakeTimestamp.Set(float64(t.Unix()))
}
