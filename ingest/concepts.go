package ingest

import (
	"context"
	"errors"

	"github.com/c360studio/semvocab/metadata"
	"github.com/c360studio/semvocab/naming"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// Columns of concept definition tables.
const (
	FieldTopConcept = "topConcept"
	FieldSubject    = "subject"
	FieldPredicate  = "predicate"
	FieldObject     = "object"
	FieldLanguage   = "language"
)

func (p *Pipeline) ingestSchemes(ctx context.Context) error {
	if err := p.readNamespaces(ctx); err != nil {
		return err
	}
	table := p.opts.Tables.Schemes
	schemes, err := metadata.ReadSchemes(ctx, p.src, table, p.ns, p.skipDeclaration)
	switch {
	case errors.Is(err, source.ErrTableNotFound):
		p.skip(reasonMissingTable, "Skipping missing table", "table", table)
		return nil
	case errors.Is(err, source.ErrInvalidTable):
		p.skip(reasonInvalidTable, "Skipping invalid table", "table", table, "error", err)
		return nil
	case err != nil:
		return readFailure(err, table)
	}

	for _, s := range schemes {
		ok, err := p.ensure(ctx, storage.KindConceptScheme, s.URI, "table", table, "row", s.Row.Number())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := p.annotate(ctx, s.URI, s.Row, firstLanguage(s.Languages)); err != nil {
			return err
		}
		p.schemes = append(p.schemes, s)
	}
	return nil
}

func (p *Pipeline) ingestConcepts(ctx context.Context) error {
	for _, s := range p.schemes {
		b := &schemeBuilder{p: p, scheme: s, defined: make(map[string]bool)}
		if s.DeclarationTable != "" {
			if err := b.declarations(ctx); err != nil {
				return err
			}
		}
		for _, table := range s.ConceptTables {
			var err error
			if s.Format == metadata.FormatTriple {
				err = b.tripleTable(ctx, table)
			} else {
				err = b.tabularTable(ctx, table)
			}
			if err != nil {
				return err
			}
		}
		p.logger.Debug("Scheme concepts loaded", "scheme", s.URI, "concepts", len(b.defined))
	}
	return nil
}

// schemeBuilder loads the concepts of one scheme. defined tracks concepts
// already created and placed in the scheme.
type schemeBuilder struct {
	p       *Pipeline
	scheme  metadata.Scheme
	defined map[string]bool
}

func (b *schemeBuilder) lang() string { return firstLanguage(b.scheme.Languages) }

// define creates the concept and asserts its scheme membership once.
func (b *schemeBuilder) define(ctx context.Context, uri string, args ...any) (bool, error) {
	if b.defined[uri] {
		return true, nil
	}
	ok, err := b.p.ensure(ctx, storage.KindConcept, uri, args...)
	if err != nil || !ok {
		return false, err
	}
	inScheme := b.p.vocab.MustLookup(skos.InScheme)
	if err := b.p.assertRelation(ctx, uri, inScheme, b.scheme.URI); err != nil {
		return false, err
	}
	b.defined[uri] = true
	return true, nil
}

func (b *schemeBuilder) declarations(ctx context.Context) error {
	name := b.scheme.DeclarationTable
	t, ok, err := b.p.open(ctx, name, metadata.FieldID)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	for t.Next() {
		row := t.Row()
		uri, ok := naming.Resolve(row.Text(metadata.FieldID), b.p.ns.ConceptNamespace())
		if !ok {
			b.p.skip(reasonNoIdentifier, "Skipping row without identifier", "table", name, "row", row.Number())
			continue
		}
		if _, err := b.define(ctx, uri, "table", name, "row", row.Number()); err != nil {
			return err
		}
	}
	return readErr(t)
}

func (b *schemeBuilder) tabularTable(ctx context.Context, name string) error {
	t, ok, err := b.p.open(ctx, name, metadata.FieldID)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	topConceptOf := b.p.vocab.MustLookup(skos.TopConceptOf)
	for t.Next() {
		row := t.Row()
		uri, ok := naming.Resolve(row.Text(metadata.FieldID), b.p.ns.ConceptNamespace())
		if !ok {
			b.p.skip(reasonNoIdentifier, "Skipping row without identifier", "table", name, "row", row.Number())
			continue
		}
		top, _, err := row.Bool(FieldTopConcept)
		if err != nil {
			b.p.skip(reasonMalformed, "Skipping malformed row", "table", name, "row", row.Number(), "error", err)
			continue
		}

		ok, err = b.define(ctx, uri, "table", name, "row", row.Number())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if top {
			if err := b.p.assertRelation(ctx, uri, topConceptOf, b.scheme.URI); err != nil {
				return err
			}
		}
		if err := b.p.annotate(ctx, uri, row, b.lang()); err != nil {
			return err
		}
	}
	return readErr(t)
}

// tripleTable loads (subject, predicate, object) rows. Rows are grouped by
// subject first, so a subject's rows need not be contiguous.
func (b *schemeBuilder) tripleTable(ctx context.Context, name string) error {
	t, ok, err := b.p.open(ctx, name, FieldSubject, FieldPredicate, FieldObject)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	groups, err := source.GroupBy(t, FieldSubject)
	if err != nil {
		return readFailure(err, name)
	}

	for _, g := range groups {
		uri, ok := naming.Resolve(g.Key, b.p.ns.ConceptNamespace())
		if !ok {
			for _, row := range g.Rows {
				b.p.skip(reasonNoIdentifier, "Skipping row without subject", "table", name, "row", row.Number())
			}
			continue
		}
		ok, err := b.define(ctx, uri, "table", name, "row", g.Rows[0].Number())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, row := range g.Rows {
			if err := b.tripleRow(ctx, name, uri, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *schemeBuilder) tripleRow(ctx context.Context, table, subject string, row source.Row) error {
	p := b.p
	raw := row.Text(FieldPredicate)
	prop, ok := p.lookupPredicate(raw)
	if !ok {
		p.skip(reasonUnknownPredicate, "Skipping row with unknown predicate",
			"table", table, "row", row.Number(), "predicate", raw)
		return nil
	}

	if prop.Kind == skos.KindAnnotation {
		var lit Literal
		if lang := row.Text(FieldLanguage); lang != "" {
			lit = Literal{Text: row.Text(FieldObject), Language: lang}
		} else {
			lit = ParseLiteral(row.Raw(FieldObject, ""), b.lang())
		}
		if lit.Text == "" {
			p.skip(reasonMalformed, "Skipping row without object", "table", table, "row", row.Number())
			return nil
		}
		return p.addAnnotation(ctx, subject, prop, lit)
	}

	ends, ok := endpointsFor(prop)
	if !ok || ends.subject != storage.KindConcept {
		p.skip(reasonUnknownPredicate, "Skipping row, predicate does not apply to concepts",
			"table", table, "row", row.Number(), "predicate", raw)
		return nil
	}
	object, ok, err := p.resolveEndpoint(ctx, row.Text(FieldObject), ends.object)
	if err != nil {
		return err
	}
	if !ok {
		p.skip(reasonNoIdentifier, "Skipping row without object", "table", table, "row", row.Number())
		return nil
	}
	ok, err = p.reference(ctx, object, ends.object, accepted(ends.object)...)
	if err != nil || !ok {
		return err
	}
	return p.assertRelation(ctx, subject, prop, object)
}

func readFailure(err error, table string) error {
	return storeErr(err, "read", "read table "+table)
}
