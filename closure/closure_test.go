package closure

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *storage.Graph
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), store: storage.NewGraph()}
}

func (f *fixture) ensure(kind storage.Kind, uris ...string) {
	for _, uri := range uris {
		_, err := f.store.Ensure(f.ctx, kind, uri)
		require.NoError(f.t, err)
	}
}

func (f *fixture) relate(s, p, o string) {
	require.NoError(f.t, f.store.AddRelation(f.ctx, s, p, o))
}

func (f *fixture) has(s, p, o string) bool {
	ok, err := f.store.HasRelation(f.ctx, s, p, o)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) run(family Family) Result {
	res, err := New(f.store).Run(f.ctx, family)
	require.NoError(f.t, err)
	return res
}

func TestSemanticClosureSingleEdge(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B")
	f.relate("A", skos.IRINarrower, "B")
	f.relate("B", skos.IRIBroader, "A")

	res := f.run(FamilySemantic)
	assert.Equal(t, 1, res.Seeds)
	assert.Positive(t, res.Added)

	assert.True(t, f.has("A", skos.IRINarrowerTransitive, "B"))
	assert.True(t, f.has("B", skos.IRIBroaderTransitive, "A"))
	assert.True(t, f.has("A", skos.IRISemanticRelation, "B"))
	assert.True(t, f.has("B", skos.IRISemanticRelation, "A"))

	again := f.run(FamilySemantic)
	assert.Equal(t, 0, again.Added)
}

func TestSemanticClosureCompletesAssertedTransitiveEdges(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B", "C")
	f.relate("A", skos.IRINarrower, "B")
	f.relate("A", skos.IRINarrowerTransitive, "B")
	f.relate("B", skos.IRINarrower, "C")

	f.run(FamilySemantic)

	assert.True(t, f.has("A", skos.IRISemanticRelation, "B"))
	assert.True(t, f.has("B", skos.IRISemanticRelation, "A"))
	assert.True(t, f.has("A", skos.IRISemanticRelation, "C"))
	assert.True(t, f.has("C", skos.IRISemanticRelation, "A"))
	assert.Equal(t, 0, f.run(FamilySemantic).Added)
}

func TestSemanticClosureChain(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B", "C")
	f.relate("A", skos.IRINarrower, "B")
	f.relate("B", skos.IRINarrower, "C")

	f.run(FamilySemantic)

	assert.False(t, f.has("A", skos.IRINarrower, "C"))
	assert.True(t, f.has("A", skos.IRINarrowerTransitive, "C"))
	assert.True(t, f.has("C", skos.IRIBroaderTransitive, "A"))
	assert.False(t, f.has("C", skos.IRINarrowerTransitive, "A"))
}

func TestSemanticClosureSeedsFromBroaderOnly(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B", "C")
	f.relate("B", skos.IRIBroader, "A")
	f.relate("C", skos.IRIBroaderTransitive, "B")

	f.run(FamilySemantic)

	assert.True(t, f.has("A", skos.IRINarrowerTransitive, "C"))
	assert.True(t, f.has("C", skos.IRIBroaderTransitive, "A"))
}

func TestSemanticClosureIncremental(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B", "C")
	f.relate("A", skos.IRINarrower, "B")
	f.run(FamilySemantic)

	f.relate("B", skos.IRINarrower, "C")
	res := f.run(FamilySemantic)

	assert.Positive(t, res.Added)
	assert.True(t, f.has("A", skos.IRINarrowerTransitive, "C"))
	assert.Equal(t, 0, f.run(FamilySemantic).Added)
}

func TestMembershipClosure(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindCollection, "Coll1", "Coll2")
	f.ensure(storage.KindConcept, "ConceptX", "ConceptY")
	f.relate("Coll1", skos.IRIMember, "ConceptX")
	f.relate("Coll1", skos.IRIMember, "Coll2")
	f.relate("ConceptY", skos.IRIMemberOf, "Coll2")

	res := f.run(FamilyMembership)
	assert.Equal(t, 3, res.Seeds)

	assert.True(t, f.has("Coll1", skos.IRIMemberTransitive, "ConceptX"))
	assert.True(t, f.has("ConceptX", skos.IRIMemberOfTransitive, "Coll1"))
	assert.True(t, f.has("Coll1", skos.IRIMemberTransitive, "ConceptY"))
	assert.True(t, f.has("ConceptY", skos.IRIMemberOfTransitive, "Coll1"))
	assert.True(t, f.has("Coll2", skos.IRIMemberTransitive, "ConceptY"))
	assert.False(t, f.has("Coll1", skos.IRISemanticRelation, "ConceptX"))

	assert.Equal(t, 0, f.run(FamilyMembership).Added)
}

func TestFamiliesAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B")
	f.ensure(storage.KindCollection, "C")
	f.relate("A", skos.IRINarrower, "B")
	f.relate("C", skos.IRIMember, "A")

	f.run(FamilyMembership)
	assert.False(t, f.has("A", skos.IRINarrowerTransitive, "B"))
	assert.True(t, f.has("C", skos.IRIMemberTransitive, "A"))
	assert.False(t, f.has("C", skos.IRIMemberTransitive, "B"))
}

func TestRunAll(t *testing.T) {
	f := newFixture(t)
	f.ensure(storage.KindConcept, "A", "B")
	f.ensure(storage.KindCollection, "C")
	f.relate("A", skos.IRINarrower, "B")
	f.relate("C", skos.IRIMember, "A")

	results, err := New(f.store).RunAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, FamilySemantic, results[0].Family)
	assert.Equal(t, FamilyMembership, results[1].Family)
}

// TestSoundAndComplete checks a layered hierarchy: every narrowerTransitive
// edge must match a narrower path and every narrower path must yield one.
func TestSoundAndComplete(t *testing.T) {
	f := newFixture(t)
	node := func(layer, i int) string { return fmt.Sprintf("n%d_%d", layer, i) }

	base := make(map[string][]string)
	for layer := 0; layer < 4; layer++ {
		for i := 0; i < 3; i++ {
			f.ensure(storage.KindConcept, node(layer, i))
		}
	}
	for layer := 0; layer < 3; layer++ {
		for i := 0; i < 3; i++ {
			for _, j := range []int{i, (i + 1) % 3} {
				s, o := node(layer, i), node(layer+1, j)
				f.relate(s, skos.IRINarrower, o)
				base[s] = append(base[s], o)
			}
		}
	}

	reach := func(s string) map[string]bool {
		seen := make(map[string]bool)
		queue := append([]string(nil), base[s]...)
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			if seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, base[n]...)
		}
		return seen
	}

	f.run(FamilySemantic)

	for uri, err := range f.store.Resources(f.ctx, storage.KindConcept) {
		require.NoError(t, err)
		want := reach(uri)
		got, err := f.store.Objects(f.ctx, uri, skos.IRINarrowerTransitive)
		require.NoError(t, err)
		assert.Len(t, got, len(want), uri)
		for _, o := range got {
			assert.True(t, want[o], "unsound %s -> %s", uri, o)
		}
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("membership")
	require.NoError(t, err)
	assert.Equal(t, FamilyMembership, f)

	_, err = ParseFamily("lexical")
	assert.Error(t, err)
}

func TestUnknownFamily(t *testing.T) {
	_, err := New(storage.NewGraph()).Run(context.Background(), Family(9))
	assert.Error(t, err)
}
