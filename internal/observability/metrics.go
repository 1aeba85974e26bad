package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// tracking pipeline.
type Metrics struct {
	FramesConsumed  prometheus.Counter
	RecordsFlushed  prometheus.Counter
	ParseErrors     prometheus.Counter
	FlushErrors     prometheus.Counter
	DuplicateFrames prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Write gate metrics.
	GateOpens *prometheus.CounterVec // label: object_type

	// Flush metrics.
	FlushBatchSize prometheus.Histogram
	FlushDuration  prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "frames_consumed_total",
			Help:      "Total frames read from the source topic.",
		}),
		RecordsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "records_flushed_total",
			Help:      "Total track records written to the sink topic.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "parse_errors_total",
			Help:      "Total frame parse failures.",
		}),
		FlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "flush_errors_total",
			Help:      "Total failed flush attempts.",
		}),
		DuplicateFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "duplicate_frames_total",
			Help:      "Total replayed frames dropped by the dedupe cache.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_track",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		GateOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_track",
			Name:      "gate_opens_total",
			Help:      "Write gate openings by object type.",
		}, []string{"object_type"}),
		FlushBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_track",
			Name:      "flush_batch_size",
			Help:      "Number of track records per flush.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_track",
			Name:      "flush_duration_seconds",
			Help:      "Duration of a complete flush to the sink topic.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.FramesConsumed,
		m.RecordsFlushed,
		m.ParseErrors,
		m.FlushErrors,
		m.DuplicateFrames,
		m.PipelineRunning,
		m.GateOpens,
		m.FlushBatchSize,
		m.FlushDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesConsumed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_track", Name: "frames_consumed_total"}),
		RecordsFlushed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_track", Name: "records_flushed_total"}),
		ParseErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_track", Name: "parse_errors_total"}),
		FlushErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_track", Name: "flush_errors_total"}),
		DuplicateFrames: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_track", Name: "duplicate_frames_total"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_track", Name: "pipeline_running"}),
		GateOpens:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_track", Name: "gate_opens_total"}, []string{"object_type"}),
		FlushBatchSize:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_track", Name: "flush_batch_size"}),
		FlushDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_track", Name: "flush_duration_seconds"}),
	}
}
