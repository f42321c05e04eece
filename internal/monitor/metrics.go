package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tbwatch"

// Collector names used as the "collector" label.
const (
	collectorGPU         = "gpu"
	collectorScalars     = "scalars"
	collectorExperiments = "experiments"
)

// Metrics are the Prometheus instruments updated by the collectors and the
// controller. Create them with NewMetrics and expose them with Register.
type Metrics struct {
	Collections *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	GPUSamples  prometheus.Gauge
	Sessions    prometheus.Counter
	Running     prometheus.Gauge
}

// NewMetrics creates unregistered instruments.
func NewMetrics() *Metrics {
	return &Metrics{
		Collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Collector runs that stored new data.",
		}, []string{"collector"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_failures_total",
			Help:      "Collector runs that stored nothing, by failure kind.",
		}, []string{"collector", "kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Wall time of one collector run including the remote command.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"collector"}),
		GPUSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_window_samples",
			Help:      "GPU samples currently held in memory.",
		}),
		Sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitoring_sessions_total",
			Help:      "Monitoring sessions that reached the running state.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitoring_running",
			Help:      "1 while a monitoring session is running.",
		}),
	}
}

// Register adds every instrument to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Collections, m.Failures, m.Duration, m.GPUSamples, m.Sessions, m.Running} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(collector string, start time.Time, kind FailureKind) {
	m.Duration.WithLabelValues(collector).Observe(time.Since(start).Seconds())
	if kind == FailureNone {
		m.Collections.WithLabelValues(collector).Inc()
		return
	}
	m.Failures.WithLabelValues(collector, string(kind)).Inc()
}
