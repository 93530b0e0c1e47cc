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

// endpoints are the kinds a relation connects.
type endpoints struct {
	subject storage.Kind
	object  storage.Kind
}

var elementEndpoints = map[string]endpoints{
	skos.InScheme:           {storage.KindConcept, storage.KindConceptScheme},
	skos.TopConceptOf:       {storage.KindConcept, storage.KindConceptScheme},
	skos.HasTopConcept:      {storage.KindConceptScheme, storage.KindConcept},
	skos.Member:             {storage.KindCollection, storage.KindConcept},
	skos.MemberTransitive:   {storage.KindCollection, storage.KindConcept},
	skos.MemberOf:           {storage.KindConcept, storage.KindCollection},
	skos.MemberOfTransitive: {storage.KindConcept, storage.KindCollection},
}

func endpointsFor(prop skos.Property) (endpoints, bool) {
	switch prop.Kind {
	case skos.KindSemanticRelation:
		return endpoints{storage.KindConcept, storage.KindConcept}, true
	case skos.KindElementRelation:
		e, ok := elementEndpoints[prop.Name]
		return e, ok
	default:
		return endpoints{}, false
	}
}

// accepted lists the other kinds an endpoint of kind may already have.
// Concept positions also take collections (nested membership, collections
// in schemes).
func accepted(kind storage.Kind) []storage.Kind {
	if kind == storage.KindConcept {
		return []storage.Kind{storage.KindCollection}
	}
	return nil
}

// resolveEndpoint resolves raw against the namespace of kind. A concept
// position first checks whether the value names an existing collection.
func (p *Pipeline) resolveEndpoint(ctx context.Context, raw string, kind storage.Kind) (string, bool, error) {
	switch kind {
	case storage.KindConceptScheme:
		uri, ok := naming.Resolve(raw, p.ns.SchemeNamespace())
		return uri, ok, nil
	case storage.KindCollection:
		uri, ok := naming.Resolve(raw, p.ns.CollectionNamespace())
		return uri, ok, nil
	}

	if p.ns.CollectionNamespace() != p.ns.ConceptNamespace() {
		if uri, ok := naming.Resolve(raw, p.ns.CollectionNamespace()); ok {
			k, err := p.store.KindOf(ctx, uri)
			if err == nil && k == storage.KindCollection {
				return uri, true, nil
			}
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return "", false, storeErr(err, "resolveEndpoint", "look up resource")
			}
		}
	}
	uri, ok := naming.Resolve(raw, p.ns.ConceptNamespace())
	return uri, ok, nil
}

func (p *Pipeline) ingestRelationships(ctx context.Context) error {
	index := p.opts.Tables.Relationships
	tables, err := metadata.ReadRelationshipTables(ctx, p.src, index)
	switch {
	case errors.Is(err, source.ErrTableNotFound):
		p.skip(reasonMissingTable, "Skipping missing table", "table", index)
		return nil
	case errors.Is(err, source.ErrInvalidTable):
		p.skip(reasonInvalidTable, "Skipping invalid table", "table", index, "error", err)
		return nil
	case err != nil:
		return readFailure(err, index)
	}

	for _, name := range tables {
		if err := p.relationshipTable(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) relationshipTable(ctx context.Context, name string) error {
	t, ok, err := p.open(ctx, name, FieldSubject, FieldPredicate, FieldObject)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	for t.Next() {
		if err := p.relationshipRow(ctx, name, t.Row()); err != nil {
			return err
		}
	}
	return readErr(t)
}

func (p *Pipeline) relationshipRow(ctx context.Context, table string, row source.Row) error {
	raw := row.Text(FieldPredicate)
	prop, ok := p.lookupPredicate(raw)
	if !ok {
		p.skip(reasonUnknownPredicate, "Skipping row with unknown predicate",
			"table", table, "row", row.Number(), "predicate", raw)
		return nil
	}
	ends, ok := endpointsFor(prop)
	if !ok {
		p.skip(reasonUnknownPredicate, "Skipping row, predicate is not a relation",
			"table", table, "row", row.Number(), "predicate", raw)
		return nil
	}

	subject, ok, err := p.resolveEndpoint(ctx, row.Text(FieldSubject), ends.subject)
	if err != nil {
		return err
	}
	if !ok {
		p.skip(reasonNoIdentifier, "Skipping row without subject", "table", table, "row", row.Number())
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

	if ok, err := p.reference(ctx, subject, ends.subject, accepted(ends.subject)...); err != nil || !ok {
		return err
	}
	if ok, err := p.reference(ctx, object, ends.object, accepted(ends.object)...); err != nil || !ok {
		return err
	}
	return p.assertRelation(ctx, subject, prop, object)
}
