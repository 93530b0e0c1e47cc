package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semvocab/closure"
	"github.com/c360studio/semvocab/export"
	"github.com/c360studio/semvocab/graph"
	"github.com/c360studio/semvocab/ingest"
	"github.com/c360studio/semvocab/metrics"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

const (
	conceptA = "http://ex.org/c/A"
	conceptB = "http://ex.org/c/B"
	conceptC = "http://ex.org/c/C"
	coll1    = "http://ex.org/coll/Coll1"
)

func chainSource() *source.Memory {
	return source.NewMemory().
		Add("config", []string{"namespace", "conceptNamespace", "schemeNamespace", "collectionNamespace"},
			[]string{"http://ex.org/", "c/", "s/", "coll/"}).
		Add("schemes", []string{"id", "format", "concepts", "prefLabel@en"},
			[]string{"cs1", "triple", "defs", "Sensors"}).
		Add("defs", []string{"subject", "predicate", "object"},
			[]string{"A", "narrower", "B"},
			[]string{"B", "narrower", "C"}).
		Add("collections", []string{"id"}, []string{"Coll1"}).
		Add("members", []string{"collection", "member"}, []string{"Coll1", "A"})
}

func hasEdge(t *testing.T, g storage.Store, s, p, o string) bool {
	t.Helper()
	ok, err := g.HasRelation(context.Background(), s, p, o)
	require.NoError(t, err)
	return ok
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingPublisher) PublishToStream(_ context.Context, subject string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestRunIngestsAndCloses(t *testing.T) {
	g := storage.NewGraph()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	d := New(g, chainSource(), Options{
		Ingest:       ingest.Options{InferInverse: true},
		InferClosure: true,
	}, WithMetrics(m))

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Ingest.Success)
	require.Len(t, report.Closure, 2)
	assert.Equal(t, closure.FamilySemantic, report.Closure[0].Family)
	assert.Equal(t, closure.FamilyMembership, report.Closure[1].Family)

	assert.True(t, hasEdge(t, g, conceptA, skos.IRINarrowerTransitive, conceptC))
	assert.True(t, hasEdge(t, g, conceptC, skos.IRIBroaderTransitive, conceptA))
	assert.True(t, hasEdge(t, g, conceptA, skos.IRISemanticRelation, conceptB))
	assert.True(t, hasEdge(t, g, coll1, skos.IRIMemberTransitive, conceptA))
	assert.True(t, hasEdge(t, g, conceptA, skos.IRIMemberOfTransitive, coll1))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
}

func TestRunTwiceAddsNothing(t *testing.T) {
	g := storage.NewGraph()
	d := New(g, chainSource(), Options{
		Ingest:       ingest.Options{InferInverse: true, InferSuper: true},
		InferClosure: true,
	})

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	before := g.Stats()

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	for _, res := range report.Closure {
		assert.Equal(t, 0, res.Added, res.Family.String())
	}
	assert.Equal(t, before, g.Stats())
}

func TestRunWithoutClosure(t *testing.T) {
	g := storage.NewGraph()
	report, err := New(g, chainSource(), Options{Ingest: ingest.Options{InferInverse: true}}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Closure)
	assert.True(t, hasEdge(t, g, conceptB, skos.IRIBroader, conceptA))
	assert.False(t, hasEdge(t, g, conceptA, skos.IRINarrowerTransitive, conceptC))
}

func TestRunSelectedFamilies(t *testing.T) {
	g := storage.NewGraph()
	report, err := New(g, chainSource(), Options{
		InferClosure: true,
		Families:     []closure.Family{closure.FamilyMembership},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Closure, 1)
	assert.True(t, hasEdge(t, g, coll1, skos.IRIMemberTransitive, conceptA))
	assert.False(t, hasEdge(t, g, conceptA, skos.IRINarrowerTransitive, conceptC))
}

func TestRunPublishesAndExports(t *testing.T) {
	g := storage.NewGraph()
	rec := &recordingPublisher{}
	path := filepath.Join(t.TempDir(), "out", "vocab.nt")

	report, err := New(g, chainSource(), Options{InferClosure: true},
		WithPublisher(graph.NewPublisher(rec)),
		WithExport(export.FormatNTriples, path),
	).Run(context.Background())
	require.NoError(t, err)

	// One scheme, three concepts, one collection.
	assert.Equal(t, 5, report.Published)
	assert.Len(t, rec.subjects, 5)
	assert.Equal(t, path, report.Exported)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<"+conceptA+"> <"+skos.IRINarrowerTransitive+"> <"+conceptC+"> .")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary export file left behind")
}

type failingStore struct {
	*storage.Graph
}

func (f failingStore) Synchronize(context.Context) error {
	return errors.New("disk full")
}

func TestRunStoreFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	report, err := New(failingStore{storage.NewGraph()}, chainSource(), Options{InferClosure: true}, WithMetrics(m)).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
	assert.False(t, report.Success)
	assert.Empty(t, report.Closure)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failure")))
}

func TestWatchRebuildsOnChange(t *testing.T) {
	g := storage.NewGraph()
	src := chainSource()
	d := New(g, src, Options{InferClosure: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan source.Change, 1)
	changes <- source.Change{Tables: []string{"defs"}, At: time.Now()}
	close(changes)

	require.NoError(t, d.Watch(ctx, changes))
	assert.True(t, hasEdge(t, g, conceptA, skos.IRINarrowerTransitive, conceptC))
}

func TestWatchStopsOnFatalError(t *testing.T) {
	d := New(failingStore{storage.NewGraph()}, chainSource(), Options{})

	changes := make(chan source.Change, 1)
	changes <- source.Change{Tables: []string{"schemes"}}

	err := d.Watch(context.Background(), changes)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disk full"))
}
