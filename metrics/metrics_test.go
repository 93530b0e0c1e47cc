package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddFacts("schemes", 3)
	m.AddFacts("schemes", 0)
	m.IncrementSkipped("relationships", "unknown_predicate")
	m.IncrementSynchronized()
	m.ObserveClosure("semantic", 2, 4, time.Now())
	m.IncrementRun(true)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FactsAdded.WithLabelValues("schemes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("relationships", "unknown_predicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Synchronized))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ClosureAdded.WithLabelValues("semantic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddFacts("schemes", 1)
		m.IncrementSkipped("schemes", "x")
		m.IncrementSynchronized()
		m.ObserveStage("schemes", time.Now())
		m.ObserveClosure("membership", 1, 1, time.Now())
		m.IncrementRun(false)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncrementSynchronized()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "semvocab_store_synchronize_total 1"))
}
