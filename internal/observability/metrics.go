package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dashboard engine.
type Metrics struct {
	PollsTotal            *prometheus.CounterVec // labels: outcome={success,failure}
	SnapshotFetchDuration prometheus.Histogram
	PerturbationCycles    prometheus.Counter
	ChaosIndex            prometheus.Gauge
	SnapshotStale         prometheus.Gauge
	SimulationActive      prometheus.Gauge

	// Animation sequencer metrics.
	AttacksSpawned       prometheus.Counter
	AttacksDropped       prometheus.Counter
	ActiveAnimations     prometheus.Gauge
	FrameAdvanceDuration prometheus.Histogram

	// Kafka broadcast metrics.
	BroadcastPublished prometheus.Counter
	BroadcastErrors    prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.SnapshotFetchDuration,
		m.PerturbationCycles,
		m.ChaosIndex,
		m.SnapshotStale,
		m.SimulationActive,
		m.AttacksSpawned,
		m.AttacksDropped,
		m.ActiveAnimations,
		m.FrameAdvanceDuration,
		m.BroadcastPublished,
		m.BroadcastErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "polls_total",
			Help:      "Snapshot poll attempts by outcome.",
		}, []string{"outcome"}),
		SnapshotFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chaos_meter",
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Duration of upstream snapshot fetches.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PerturbationCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "perturbation_cycles_total",
			Help:      "Fallback perturbation passes applied while offline.",
		}),
		ChaosIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaos_meter",
			Name:      "chaos_index",
			Help:      "Current displayed chaos index (0-100).",
		}),
		SnapshotStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaos_meter",
			Name:      "snapshot_stale",
			Help:      "1 when the current snapshot is older than twice its cadence.",
		}),
		SimulationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaos_meter",
			Name:      "simulation_active",
			Help:      "1 while simulation mode has the live timers frozen.",
		}),
		AttacksSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "attacks_spawned_total",
			Help:      "Attack animations started.",
		}),
		AttacksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "attacks_dropped_total",
			Help:      "Attack events dropped for unmapped country codes.",
		}),
		ActiveAnimations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chaos_meter",
			Name:      "active_animations",
			Help:      "Animations currently between spawn and removal.",
		}),
		FrameAdvanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chaos_meter",
			Name:      "frame_advance_duration_seconds",
			Help:      "Time spent computing one animation frame.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005},
		}),
		BroadcastPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "broadcast_published_total",
			Help:      "Scored snapshots published to the broadcast topic.",
		}),
		BroadcastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chaos_meter",
			Name:      "broadcast_errors_total",
			Help:      "Failed broadcast publishes.",
		}),
	}
}
