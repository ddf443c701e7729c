package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// feature pipeline.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec // labels: outcome={success,error}
	ObservationsRead     prometheus.Counter
	ObservationsDiscard  *prometheus.CounterVec // labels: reason={out_of_range,duplicate}
	MatrixRows           prometheus.Gauge
	MatrixColumns        prometheus.Gauge
	PipelineRunning      prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge

	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec // labels: stage={extract,align,features,assemble,load}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avy_etl",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		ObservationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avy_etl",
			Name:      "observations_read_total",
			Help:      "Raw observations read from the source store.",
		}),
		ObservationsDiscard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avy_etl",
			Name:      "observations_discarded_total",
			Help:      "Raw observations discarded during cleaning, by reason.",
		}, []string{"reason"}),
		MatrixRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avy_etl",
			Name:      "matrix_rows",
			Help:      "Rows in the most recently built feature matrix.",
		}),
		MatrixColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avy_etl",
			Name:      "matrix_columns",
			Help:      "Feature columns in the most recently built matrix.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avy_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avy_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "avy_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "avy_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.ObservationsRead,
		m.ObservationsDiscard,
		m.MatrixRows,
		m.MatrixColumns,
		m.PipelineRunning,
		m.LastSuccessTimestamp,
		m.RunDuration,
		m.StageDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "avy_etl", Name: "runs_total"}, []string{"outcome"}),
		ObservationsRead:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "avy_etl", Name: "observations_read_total"}),
		ObservationsDiscard:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "avy_etl", Name: "observations_discarded_total"}, []string{"reason"}),
		MatrixRows:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "avy_etl", Name: "matrix_rows"}),
		MatrixColumns:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "avy_etl", Name: "matrix_columns"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "avy_etl", Name: "pipeline_running"}),
		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "avy_etl", Name: "last_success_timestamp_seconds"}),
		RunDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "avy_etl", Name: "run_duration_seconds"}),
		StageDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "avy_etl", Name: "stage_duration_seconds"}, []string{"stage"}),
	}
}
