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

// Columns of membership tables.
const (
	FieldCollection = "collection"
	FieldMember     = "member"
)

func (p *Pipeline) ingestCollections(ctx context.Context) error {
	table := p.opts.Tables.Collections
	colls, err := metadata.ReadCollections(ctx, p.src, table, p.ns, p.skipDeclaration)
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

	inScheme := p.vocab.MustLookup(skos.InScheme)
	for _, c := range colls {
		ok, err := p.ensure(ctx, storage.KindCollection, c.URI, "table", table, "row", c.Row.Number())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := p.annotate(ctx, c.URI, c.Row, firstLanguage(c.Languages)); err != nil {
			return err
		}
		for _, raw := range c.Schemes {
			scheme, ok := naming.Resolve(raw, p.ns.SchemeNamespace())
			if !ok {
				continue
			}
			ok, err := p.reference(ctx, scheme, storage.KindConceptScheme)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := p.assertRelation(ctx, c.URI, inScheme, scheme); err != nil {
				return err
			}
		}
		p.collections = append(p.collections, c)
	}
	return nil
}

// ingestMembership reads the three membership sources in turn: each
// collection's own member table, the global member table and the global
// collection-of-collection table.
func (p *Pipeline) ingestMembership(ctx context.Context) error {
	for _, c := range p.collections {
		if c.MemberTable == "" {
			continue
		}
		if err := p.ownMembers(ctx, c); err != nil {
			return err
		}
	}
	if err := p.globalMembers(ctx, p.opts.Tables.Members, storage.KindConcept); err != nil {
		return err
	}
	return p.globalMembers(ctx, p.opts.Tables.CollectionMembers, storage.KindCollection)
}

func (p *Pipeline) ownMembers(ctx context.Context, c metadata.Collection) error {
	t, ok, err := p.open(ctx, c.MemberTable, FieldMember)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	for t.Next() {
		if err := p.addMember(ctx, c.URI, t.Row(), storage.KindConcept, c.MemberTable); err != nil {
			return err
		}
	}
	return readErr(t)
}

// globalMembers reads a (collection, member) table grouped by collection.
// Collections are created on demand.
func (p *Pipeline) globalMembers(ctx context.Context, name string, memberKind storage.Kind) error {
	t, ok, err := p.open(ctx, name, FieldCollection, FieldMember)
	if err != nil || !ok {
		return err
	}
	defer t.Close()

	groups, err := source.GroupBy(t, FieldCollection)
	if err != nil {
		return readFailure(err, name)
	}
	for _, g := range groups {
		coll, ok := naming.Resolve(g.Key, p.ns.CollectionNamespace())
		if !ok {
			for _, row := range g.Rows {
				p.skip(reasonNoIdentifier, "Skipping row without collection", "table", name, "row", row.Number())
			}
			continue
		}
		ok, err := p.reference(ctx, coll, storage.KindCollection)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, row := range g.Rows {
			if err := p.addMember(ctx, coll, row, memberKind, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) addMember(ctx context.Context, coll string, row source.Row, kind storage.Kind, table string) error {
	member, ok, err := p.resolveEndpoint(ctx, row.Text(FieldMember), kind)
	if err != nil {
		return err
	}
	if !ok {
		p.skip(reasonNoIdentifier, "Skipping row without member", "table", table, "row", row.Number())
		return nil
	}
	if member == coll {
		p.skip(reasonMalformed, "Skipping row, collection cannot contain itself",
			"table", table, "row", row.Number(), "collection", coll)
		return nil
	}
	ok, err = p.reference(ctx, member, kind, accepted(kind)...)
	if err != nil || !ok {
		return err
	}
	return p.assertRelation(ctx, coll, p.vocab.MustLookup(skos.Member), member)
}
