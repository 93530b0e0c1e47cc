// Package ingest loads a vocabulary graph from tabular sources.
//
// A Pipeline runs five stages in a fixed order (schemes, concepts,
// collections, membership, relationships). Each stage is skipped when its
// table is absent. Bad rows are logged and skipped; store failures and
// source read failures abort the run.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	errs "github.com/c360studio/semstreams/errors"

	"github.com/c360studio/semvocab/metadata"
	"github.com/c360studio/semvocab/metrics"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// DefaultBufferSize is the number of facts added between store checkpoints.
const DefaultBufferSize = 300000

// Stage names.
const (
	StageSchemes       = "schemes"
	StageConcepts      = "concepts"
	StageCollections   = "collections"
	StageMembership    = "membership"
	StageRelationships = "relationships"
)

// Skip reasons reported to metrics.
const (
	reasonMissingTable     = "missing_table"
	reasonInvalidTable     = "invalid_table"
	reasonNoIdentifier     = "no_identifier"
	reasonMalformed        = "malformed_row"
	reasonUnknownPredicate = "unknown_predicate"
	reasonKindConflict     = "kind_conflict"
)

// Options controls inference during ingestion and checkpointing.
type Options struct {
	// InferInverse asserts the inverse of every asserted relation.
	InferInverse bool

	// InferSuper asserts the direct super-properties of every asserted
	// relation (and of its inverse when InferInverse is set).
	InferSuper bool

	// IncrementalSync synchronizes the store after every stage.
	IncrementalSync bool

	// BufferSize is the number of added facts that triggers a store
	// synchronize. Zero uses DefaultBufferSize.
	BufferSize int

	// Tables names the convention tables. Blank names use the defaults.
	Tables metadata.Tables
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    string
	Added    int
	Skipped  int
	Duration time.Duration
}

// Report is the outcome of a run.
type Report struct {
	Stages  []StageResult
	Success bool
}

// Added is the total number of facts added across stages.
func (r Report) Added() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Added
	}
	return n
}

// Stage returns the result of the named stage.
func (r Report) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Pipeline ingests one source into one store. A Pipeline is single-use and
// not safe for concurrent use.
type Pipeline struct {
	store   storage.Store
	src     source.Source
	opts    Options
	vocab   *skos.Vocabulary
	logger  *slog.Logger
	metrics *metrics.Metrics

	ns          metadata.Namespaces
	schemes     []metadata.Scheme
	collections []metadata.Collection

	stage   *StageResult
	pending int
	report  Report
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVocabulary replaces the default SKOS property vocabulary.
func WithVocabulary(v *skos.Vocabulary) Option {
	return func(p *Pipeline) { p.vocab = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records stage counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline.
func New(store storage.Store, src source.Source, opts Options, options ...Option) *Pipeline {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	opts.Tables = opts.Tables.WithDefaults()
	p := &Pipeline{
		store: store,
		src:   src,
		opts:  opts,
	}
	for _, o := range options {
		o(p)
	}
	if p.vocab == nil {
		p.vocab = skos.Default()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run executes every stage in order. On a hard failure the returned report
// holds the stages completed so far, Success is false and the error is
// returned.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageSchemes, p.ingestSchemes},
		{StageConcepts, p.ingestConcepts},
		{StageCollections, p.ingestCollections},
		{StageMembership, p.ingestMembership},
		{StageRelationships, p.ingestRelationships},
	}
	for _, s := range stages {
		if err := p.runStage(ctx, s.name, s.fn); err != nil {
			p.logger.Error("Ingestion aborted", "stage", s.name, "error", err)
			return p.report, err
		}
	}

	if err := p.sync(ctx); err != nil {
		return p.report, err
	}
	p.report.Success = true
	p.logger.Info("Ingestion complete", "added", p.report.Added())
	return p.report, nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	p.stage = &StageResult{Stage: name}
	err := fn(ctx)
	p.stage.Duration = time.Since(start)
	p.report.Stages = append(p.report.Stages, *p.stage)
	p.metrics.AddFacts(name, p.stage.Added)
	p.metrics.ObserveStage(name, start)
	if err != nil {
		return err
	}

	if p.opts.IncrementalSync {
		if err := p.sync(ctx); err != nil {
			return err
		}
	}
	p.logger.Info("Stage complete",
		"stage", name,
		"added", p.stage.Added,
		"skipped", p.stage.Skipped,
		"duration", p.stage.Duration)
	return nil
}

// readNamespaces loads the config table. Without a usable table identifiers
// resolve without namespace; any other failure is fatal.
func (p *Pipeline) readNamespaces(ctx context.Context) error {
	table := p.opts.Tables.Config
	ns, err := metadata.ReadNamespaces(ctx, p.src, table)
	switch {
	case errors.Is(err, source.ErrTableNotFound):
		p.skip(reasonMissingTable, "No namespace configuration, identifiers resolve without namespace", "table", table)
	case errors.Is(err, source.ErrInvalidTable):
		p.skip(reasonInvalidTable, "Invalid namespace configuration, identifiers resolve without namespace",
			"table", table, "error", err)
	case err != nil:
		return errs.WrapFatal(err, "ingest", "namespaces", "read config table")
	}
	p.ns = ns
	return nil
}

// added counts n new facts and synchronizes once the buffer is full.
func (p *Pipeline) added(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}
	p.stage.Added += n
	p.pending += n
	if p.pending >= p.opts.BufferSize {
		return p.sync(ctx)
	}
	return nil
}

func (p *Pipeline) sync(ctx context.Context) error {
	if err := p.store.Synchronize(ctx); err != nil {
		return errs.WrapFatal(err, "ingest", "sync", "synchronize store")
	}
	p.metrics.IncrementSynchronized()
	p.logger.Debug("Store synchronized", "facts", p.pending)
	p.pending = 0
	return nil
}

func (p *Pipeline) skip(reason, msg string, args ...any) {
	p.stage.Skipped++
	p.metrics.IncrementSkipped(p.stage.Stage, reason)
	p.logger.Warn(msg, append([]any{"stage", p.stage.Stage}, args...)...)
}

// skipDeclaration counts a scheme or collection row the metadata reader
// rejected.
func (p *Pipeline) skipDeclaration(table string, row source.Row, err error) {
	reason := reasonMalformed
	if errors.Is(err, metadata.ErrNoIdentifier) {
		reason = reasonNoIdentifier
	}
	p.skip(reason, "Skipping declaration row", "table", table, "row", row.Number(), "error", err)
}

// open opens a table and checks its required columns. A missing or invalid
// table is logged and reported as ok=false with a nil error.
func (p *Pipeline) open(ctx context.Context, name string, required ...string) (source.Table, bool, error) {
	t, err := p.src.Open(ctx, name)
	switch {
	case errors.Is(err, source.ErrTableNotFound):
		p.skip(reasonMissingTable, "Skipping missing table", "table", name)
		return nil, false, nil
	case errors.Is(err, source.ErrInvalidTable):
		p.skip(reasonInvalidTable, "Skipping invalid table", "table", name, "error", err)
		return nil, false, nil
	case err != nil:
		return nil, false, errs.WrapFatal(err, "ingest", "open", "open table "+name)
	}
	if err := t.Header().Require(required...); err != nil {
		t.Close()
		p.skip(reasonInvalidTable, "Skipping invalid table", "table", name, "error", err)
		return nil, false, nil
	}
	return t, true, nil
}

// readErr classifies a table read failure.
func readErr(t source.Table) error {
	if err := t.Err(); err != nil {
		return errs.WrapFatal(err, "ingest", "read", "read table "+t.Name())
	}
	return nil
}

func storeErr(err error, method, action string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.WrapFatal(err, "ingest", method, action)
}

// ensure creates a resource. ok is false when the identifier is taken by a
// different kind; the caller skips the row.
func (p *Pipeline) ensure(ctx context.Context, kind storage.Kind, uri string, args ...any) (bool, error) {
	created, err := p.store.Ensure(ctx, kind, uri)
	if errors.Is(err, storage.ErrKindConflict) {
		p.skip(reasonKindConflict, "Skipping row, identifier denotes another kind",
			append([]any{"uri", uri, "error", err}, args...)...)
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "ensure", "create "+kind.String())
	}
	if created {
		if err := p.added(ctx, 1); err != nil {
			return false, err
		}
	}
	return true, nil
}

// reference makes sure uri exists, creating it as kind if it is unknown.
// Existing resources must have one of the accepted kinds.
func (p *Pipeline) reference(ctx context.Context, uri string, kind storage.Kind, accepted ...storage.Kind) (bool, error) {
	existing, err := p.store.KindOf(ctx, uri)
	if errors.Is(err, storage.ErrNotFound) {
		return p.ensure(ctx, kind, uri)
	}
	if err != nil {
		return false, storeErr(err, "reference", "look up resource")
	}
	if existing == kind {
		return true, nil
	}
	for _, k := range accepted {
		if existing == k {
			return true, nil
		}
	}
	p.skip(reasonKindConflict, "Skipping row, identifier denotes another kind",
		"uri", uri, "kind", existing, "expected", kind)
	return false, nil
}

// annotate attaches every annotation column of row to uri.
func (p *Pipeline) annotate(ctx context.Context, uri string, row source.Row, fallbackLang string) error {
	for _, col := range row.Header() {
		prop, ok := p.vocab.Lookup(col.Field)
		if !ok || prop.Kind != skos.KindAnnotation {
			continue
		}
		for _, lit := range ParseCell(row.Raw(col.Field, col.Language), col.Language, fallbackLang) {
			if err := p.addAnnotation(ctx, uri, prop, lit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) addAnnotation(ctx context.Context, uri string, prop skos.Property, lit Literal) error {
	ok, err := p.store.AddAnnotation(ctx, uri, storage.Annotation{
		Property: prop.IRI,
		Language: lit.Language,
		Text:     lit.Text,
	})
	if err != nil {
		return storeErr(err, "annotate", "add annotation")
	}
	if ok {
		return p.added(ctx, 1)
	}
	return nil
}

// assertRelation asserts (s, prop, o) and, depending on the options, its
// inverse, its direct super-properties and those of its inverse. Inverse
// facts are existence-checked so counts only include new facts.
func (p *Pipeline) assertRelation(ctx context.Context, s string, prop skos.Property, o string) error {
	if err := p.store.AddRelation(ctx, s, prop.IRI, o); err != nil {
		return storeErr(err, "assertRelation", "add relation")
	}
	if err := p.added(ctx, 1); err != nil {
		return err
	}

	inv, hasInverse := p.vocab.Inverse(prop)
	if p.opts.InferInverse && hasInverse {
		if err := p.assertIfAbsent(ctx, o, inv, s); err != nil {
			return err
		}
	}
	if !p.opts.InferSuper {
		return nil
	}
	for _, sp := range p.vocab.Supers(prop) {
		if err := p.store.AddRelation(ctx, s, sp.IRI, o); err != nil {
			return storeErr(err, "assertRelation", "add super relation")
		}
		if err := p.added(ctx, 1); err != nil {
			return err
		}
	}
	if p.opts.InferInverse && hasInverse {
		for _, sp := range p.vocab.Supers(inv) {
			if err := p.assertIfAbsent(ctx, o, sp, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) assertIfAbsent(ctx context.Context, s string, prop skos.Property, o string) error {
	ok, err := p.store.AddRelationIfAbsent(ctx, s, prop.IRI, o)
	if err != nil {
		return storeErr(err, "assertIfAbsent", "add relation")
	}
	if ok {
		return p.added(ctx, 1)
	}
	return nil
}

// lookupPredicate resolves a predicate cell by name or by "<IRI>".
func (p *Pipeline) lookupPredicate(raw string) (skos.Property, bool) {
	if n := len(raw); n > 2 && raw[0] == '<' && raw[n-1] == '>' {
		return p.vocab.ByIRI(raw[1 : n-1])
	}
	return p.vocab.Lookup(raw)
}

func firstLanguage(langs []string) string {
	if len(langs) > 0 {
		return langs[0]
	}
	return ""
}
