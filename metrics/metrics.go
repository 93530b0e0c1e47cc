// Package metrics provides Prometheus instrumentation for ingestion and
// closure runs. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks fact counts, skipped rows, checkpoints and stage durations.
// Counts are progress telemetry, not exact fact totals.
type Metrics struct {
	FactsAdded      *prometheus.CounterVec
	RowsSkipped     *prometheus.CounterVec
	ClosureSeeds    *prometheus.CounterVec
	ClosureAdded    *prometheus.CounterVec
	Synchronized    prometheus.Counter
	Runs            *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	ClosureDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		FactsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semvocab_ingest_facts_added_total",
			Help: "Facts added by ingestion, by stage",
		}, []string{"stage"}),
		RowsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semvocab_ingest_rows_skipped_total",
			Help: "Rows or tables skipped during ingestion, by stage and reason",
		}, []string{"stage", "reason"}),
		ClosureSeeds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semvocab_closure_seeds_total",
			Help: "Seed edges copied into the closure graph, by relation family",
		}, []string{"family"}),
		ClosureAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semvocab_closure_added_total",
			Help: "Facts added by transitive closure, by relation family",
		}, []string{"family"}),
		Synchronized: f.NewCounter(prometheus.CounterOpts{
			Name: "semvocab_store_synchronize_total",
			Help: "Graph store synchronize checkpoints",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "semvocab_runs_total",
			Help: "Completed driver runs, by result",
		}, []string{"result"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semvocab_ingest_stage_duration_seconds",
			Help:    "Duration of ingestion stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		ClosureDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semvocab_closure_duration_seconds",
			Help:    "Duration of closure runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"family"}),
	}
}

// AddFacts records facts added by an ingestion stage.
func (m *Metrics) AddFacts(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FactsAdded.WithLabelValues(stage).Add(float64(n))
}

// IncrementSkipped records one skipped row or table.
func (m *Metrics) IncrementSkipped(stage, reason string) {
	if m == nil {
		return
	}
	m.RowsSkipped.WithLabelValues(stage, reason).Inc()
}

// IncrementSynchronized records one store checkpoint.
func (m *Metrics) IncrementSynchronized() {
	if m == nil {
		return
	}
	m.Synchronized.Inc()
}

// ObserveStage records the duration of a stage.
// Call with time.Now() at the start of the stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveClosure records the outcome of one closure run.
func (m *Metrics) ObserveClosure(family string, seeds, added int, start time.Time) {
	if m == nil {
		return
	}
	m.ClosureSeeds.WithLabelValues(family).Add(float64(seeds))
	m.ClosureAdded.WithLabelValues(family).Add(float64(added))
	m.ClosureDuration.WithLabelValues(family).Observe(time.Since(start).Seconds())
}

// IncrementRun records a finished run.
func (m *Metrics) IncrementRun(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.Runs.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
