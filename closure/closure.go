// Package closure materializes the transitive closure of the semantic
// (narrower/broader) and membership (member/memberOf) relation families.
//
// A run copies the existing base and transitive edges of one family into an
// auxiliary graph, computes reachability by breadth-first search, and writes
// back every closure edge the store does not already hold, together with
// its inverse. Edges already present are left alone, so repeated runs add
// nothing.
package closure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	errs "github.com/c360studio/semstreams/errors"

	"github.com/c360studio/semvocab/metrics"
	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// Family selects a relation family.
type Family int

const (
	FamilySemantic Family = iota
	FamilyMembership
)

// Families lists every family in run order.
var Families = []Family{FamilySemantic, FamilyMembership}

func (f Family) String() string {
	switch f {
	case FamilySemantic:
		return "semantic"
	case FamilyMembership:
		return "membership"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily accepts "semantic" or "membership".
func ParseFamily(s string) (Family, error) {
	for _, f := range Families {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown relation family %q", s)
}

// Result is the outcome of one run. Added counts every written fact,
// including inverses, and is progress telemetry rather than a count of
// closure edges.
type Result struct {
	Family   Family
	Seeds    int
	Added    int
	Duration time.Duration
}

// seedRule copies edges of one property into the auxiliary graph. Reversed
// rules swap subject and object.
type seedRule struct {
	property string
	reversed bool
	kinds    []storage.Kind
}

// relationSet describes how a family is seeded and written back.
type relationSet struct {
	transitive string
	seeds      []seedRule
	symmetric  string
}

var conceptsAndCollections = []storage.Kind{storage.KindConcept, storage.KindCollection}

var relationSets = map[Family]relationSet{
	FamilySemantic: {
		transitive: skos.NarrowerTransitive,
		seeds: []seedRule{
			{property: skos.NarrowerTransitive, kinds: []storage.Kind{storage.KindConcept}},
			{property: skos.Narrower, kinds: []storage.Kind{storage.KindConcept}},
			{property: skos.BroaderTransitive, reversed: true, kinds: []storage.Kind{storage.KindConcept}},
			{property: skos.Broader, reversed: true, kinds: []storage.Kind{storage.KindConcept}},
		},
		symmetric: skos.SemanticRelation,
	},
	FamilyMembership: {
		transitive: skos.MemberTransitive,
		seeds: []seedRule{
			{property: skos.Member, kinds: []storage.Kind{storage.KindCollection}},
			{property: skos.MemberTransitive, kinds: []storage.Kind{storage.KindCollection}},
			{property: skos.MemberOf, reversed: true, kinds: conceptsAndCollections},
			{property: skos.MemberOfTransitive, reversed: true, kinds: conceptsAndCollections},
		},
	},
}

// Engine runs closures against a store.
type Engine struct {
	store   storage.Store
	vocab   *skos.Vocabulary
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithVocabulary replaces the default SKOS property vocabulary.
func WithVocabulary(v *skos.Vocabulary) Option {
	return func(e *Engine) { e.vocab = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records seeds, additions and durations per family.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, o := range opts {
		o(e)
	}
	if e.vocab == nil {
		e.vocab = skos.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Run computes and merges the closure of one family.
func (e *Engine) Run(ctx context.Context, family Family) (Result, error) {
	rs, ok := relationSets[family]
	if !ok {
		return Result{}, errs.WrapInvalid(fmt.Errorf("unknown family %d", int(family)), "closure", "Run", "select family")
	}
	start := time.Now()
	res := Result{Family: family}

	aux, err := e.seed(ctx, rs)
	if err != nil {
		return res, err
	}
	res.Seeds = aux.Len()

	trans := e.vocab.MustLookup(rs.transitive)
	inv, hasInverse := e.vocab.Inverse(trans)
	var sym skos.Property
	if rs.symmetric != "" {
		sym = e.vocab.MustLookup(rs.symmetric)
	}

	var werr error
	aux.Closure(func(s, o string) bool {
		n, err := e.merge(ctx, s, o, trans, inv, hasInverse, sym)
		if err != nil {
			werr = err
			return false
		}
		res.Added += n
		return true
	})
	if werr != nil {
		return res, werr
	}
	if err := e.store.Synchronize(ctx); err != nil {
		return res, wrap(err, "synchronize store")
	}

	res.Duration = time.Since(start)
	e.metrics.ObserveClosure(family.String(), res.Seeds, res.Added, start)
	e.logger.Info("Closure complete",
		"family", family.String(),
		"seeds", res.Seeds,
		"added", res.Added,
		"duration", res.Duration)
	return res, nil
}

// RunAll runs every family in order.
func (e *Engine) RunAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(Families))
	for _, f := range Families {
		res, err := e.Run(ctx, f)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) seed(ctx context.Context, rs relationSet) (*Graph, error) {
	aux := NewGraph()
	for _, rule := range rs.seeds {
		prop := e.vocab.MustLookup(rule.property)
		for _, kind := range rule.kinds {
			for uri, err := range e.store.Resources(ctx, kind) {
				if err != nil {
					return nil, wrap(err, "list resources")
				}
				objects, err := e.store.Objects(ctx, uri, prop.IRI)
				if err != nil {
					return nil, wrap(err, "read edges")
				}
				for _, o := range objects {
					if rule.reversed {
						aux.Add(o, uri)
					} else {
						aux.Add(uri, o)
					}
				}
			}
		}
	}
	return aux, nil
}

// merge writes one closure edge unless the store already has it. The
// symmetric relation is completed in both directions either way, since an
// edge asserted during ingestion never received it.
func (e *Engine) merge(ctx context.Context, s, o string, trans, inv skos.Property, hasInverse bool, sym skos.Property) (int, error) {
	has, err := e.store.HasRelation(ctx, s, trans.IRI, o)
	if err != nil {
		return 0, wrap(err, "check edge")
	}
	if has {
		return e.relateBoth(ctx, s, sym, o, false)
	}

	if err := e.store.AddRelation(ctx, s, trans.IRI, o); err != nil {
		return 0, wrap(err, "add edge")
	}
	added := 1
	if hasInverse {
		ok, err := e.store.AddRelationIfAbsent(ctx, o, inv.IRI, s)
		if err != nil {
			return added, wrap(err, "add inverse edge")
		}
		if ok {
			added++
		}
	}
	n, err := e.relateBoth(ctx, s, sym, o, true)
	return added + n, err
}

// relateBoth asserts sym between s and o in both directions. The forward
// edge is a plain add for a new closure edge and existence-checked
// otherwise; the reverse edge is always existence-checked.
func (e *Engine) relateBoth(ctx context.Context, s string, sym skos.Property, o string, plain bool) (int, error) {
	if sym.IRI == "" {
		return 0, nil
	}
	added := 0
	if plain {
		if err := e.store.AddRelation(ctx, s, sym.IRI, o); err != nil {
			return added, wrap(err, "add edge")
		}
		added++
	} else {
		ok, err := e.store.AddRelationIfAbsent(ctx, s, sym.IRI, o)
		if err != nil {
			return added, wrap(err, "add edge")
		}
		if ok {
			added++
		}
	}
	ok, err := e.store.AddRelationIfAbsent(ctx, o, sym.IRI, s)
	if err != nil {
		return added, wrap(err, "add inverse edge")
	}
	if ok {
		added++
	}
	return added, nil
}

func wrap(err error, action string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.WrapFatal(err, "closure", "Run", action)
}
