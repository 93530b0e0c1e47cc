package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"sync"

	errs "github.com/c360studio/semstreams/errors"
)

type annotationKey struct {
	uri string
	Annotation
}

// Graph is the in-memory Store. Writes are journaled until Synchronize.
type Graph struct {
	mu sync.RWMutex

	kinds       map[string]Kind
	order       map[Kind][]string
	annotations map[string][]Annotation
	annSet      map[annotationKey]struct{}
	edges       map[Edge]struct{}
	out         map[string]map[string][]string

	seq     uint64
	journal []Fact
	backend Backend
	closed  bool
	logger  *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithBackend sets the durable backend Synchronize commits to.
func WithBackend(b Backend) Option {
	return func(g *Graph) { g.backend = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		kinds:       make(map[string]Kind),
		order:       make(map[Kind][]string),
		annotations: make(map[string][]Annotation),
		annSet:      make(map[annotationKey]struct{}),
		edges:       make(map[Edge]struct{}),
		out:         make(map[string]map[string][]string),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open creates a graph and replays every fact stored in backend into it.
// Replayed facts are not journaled again.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Graph, error) {
	g := NewGraph(append(opts, WithBackend(backend))...)

	var facts []Fact
	err := backend.Load(ctx, func(f Fact) error {
		facts = append(facts, f)
		return nil
	})
	if err != nil {
		return nil, errs.WrapFatal(err, "storage", "Open", "load facts")
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Seq < facts[j].Seq })

	for _, f := range facts {
		g.apply(f)
		if f.Seq > g.seq {
			g.seq = f.Seq
		}
	}
	g.journal = nil

	g.logger.Info("Graph loaded", "facts", len(facts), "resources", len(g.kinds), "edges", len(g.edges))
	return g, nil
}

// apply adds f to the indexes and journals it if it is new. Callers hold mu.
func (g *Graph) apply(f Fact) bool {
	switch f.Type {
	case FactResource:
		if _, ok := g.kinds[f.Subject]; ok {
			return false
		}
		g.kinds[f.Subject] = f.Kind
		g.order[f.Kind] = append(g.order[f.Kind], f.Subject)

	case FactAnnotation:
		a := Annotation{Property: f.Predicate, Language: f.Language, Text: f.Object}
		key := annotationKey{uri: f.Subject, Annotation: a}
		if _, ok := g.annSet[key]; ok {
			return false
		}
		g.annSet[key] = struct{}{}
		g.annotations[f.Subject] = append(g.annotations[f.Subject], a)

	case FactRelation:
		e := Edge{Subject: f.Subject, Predicate: f.Predicate, Object: f.Object}
		if _, ok := g.edges[e]; ok {
			return false
		}
		g.edges[e] = struct{}{}
		byPred, ok := g.out[e.Subject]
		if !ok {
			byPred = make(map[string][]string)
			g.out[e.Subject] = byPred
		}
		byPred[e.Predicate] = append(byPred[e.Predicate], e.Object)

	default:
		return false
	}

	if f.Seq == 0 {
		g.seq++
		f.Seq = g.seq
	}
	g.journal = append(g.journal, f)
	return true
}

func (g *Graph) check(ctx context.Context) error {
	if g.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (g *Graph) Ensure(ctx context.Context, kind Kind, uri string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return false, err
	}
	if existing, ok := g.kinds[uri]; ok {
		if existing != kind {
			return false, fmt.Errorf("%w: %s is a %s, not a %s", ErrKindConflict, uri, existing, kind)
		}
		return false, nil
	}
	return g.apply(Fact{Type: FactResource, Kind: kind, Subject: uri}), nil
}

func (g *Graph) KindOf(ctx context.Context, uri string) (Kind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(ctx); err != nil {
		return KindNone, err
	}
	k, ok := g.kinds[uri]
	if !ok {
		return KindNone, ErrNotFound
	}
	return k, nil
}

func (g *Graph) AddAnnotation(ctx context.Context, uri string, a Annotation) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return false, err
	}
	return g.apply(Fact{
		Type:      FactAnnotation,
		Subject:   uri,
		Predicate: a.Property,
		Object:    a.Text,
		Language:  a.Language,
	}), nil
}

func (g *Graph) AddRelation(ctx context.Context, s, p, o string) error {
	_, err := g.AddRelationIfAbsent(ctx, s, p, o)
	return err
}

func (g *Graph) AddRelationIfAbsent(ctx context.Context, s, p, o string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return false, err
	}
	return g.apply(Fact{Type: FactRelation, Subject: s, Predicate: p, Object: o}), nil
}

func (g *Graph) HasRelation(ctx context.Context, s, p, o string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(ctx); err != nil {
		return false, err
	}
	_, ok := g.edges[Edge{Subject: s, Predicate: p, Object: o}]
	return ok, nil
}

// Resources iterates a snapshot, so callers may write to the graph while
// iterating.
func (g *Graph) Resources(ctx context.Context, kind Kind) iter.Seq2[string, error] {
	g.mu.RLock()
	err := g.check(ctx)
	snapshot := append([]string(nil), g.order[kind]...)
	g.mu.RUnlock()

	return func(yield func(string, error) bool) {
		if err != nil {
			yield("", err)
			return
		}
		for _, uri := range snapshot {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(uri, nil) {
				return
			}
		}
	}
}

func (g *Graph) Objects(ctx context.Context, s, p string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), g.out[s][p]...), nil
}

func (g *Graph) Outgoing(ctx context.Context, s string) ([]Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	preds := make([]string, 0, len(g.out[s]))
	for p := range g.out[s] {
		preds = append(preds, p)
	}
	sort.Strings(preds)

	var edges []Edge
	for _, p := range preds {
		for _, o := range g.out[s][p] {
			edges = append(edges, Edge{Subject: s, Predicate: p, Object: o})
		}
	}
	return edges, nil
}

func (g *Graph) Annotations(ctx context.Context, uri string) ([]Annotation, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	return append([]Annotation(nil), g.annotations[uri]...), nil
}

// Pending returns the number of journaled facts not yet synchronized.
func (g *Graph) Pending() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.journal)
}

// Stats reports the size of the graph.
type Stats struct {
	Resources   map[Kind]int
	Annotations int
	Edges       int
}

// Stats returns the current size of the graph.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := Stats{Resources: make(map[Kind]int), Annotations: len(g.annSet), Edges: len(g.edges)}
	for k, uris := range g.order {
		st.Resources[k] = len(uris)
	}
	return st
}

// Synchronize commits the journal to the backend. Without a backend the
// journal is discarded. On failure the journal is kept for a later retry.
func (g *Graph) Synchronize(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(ctx); err != nil {
		return err
	}
	if len(g.journal) == 0 {
		return nil
	}
	if g.backend != nil {
		if err := g.backend.Commit(ctx, g.journal); err != nil {
			return errs.WrapFatal(err, "storage", "Synchronize", "commit facts")
		}
	}
	g.logger.Debug("Graph synchronized", "facts", len(g.journal))
	g.journal = nil
	return nil
}

// Close synchronizes pending facts and closes the backend. The backend is
// closed even when the final synchronize fails; both errors are returned.
func (g *Graph) Close() error {
	syncErr := g.Synchronize(context.Background())
	if errors.Is(syncErr, ErrClosed) {
		syncErr = nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return syncErr
	}
	g.closed = true
	if g.backend != nil {
		return errors.Join(syncErr, g.backend.Close())
	}
	return syncErr
}

var _ Store = (*Graph)(nil)
