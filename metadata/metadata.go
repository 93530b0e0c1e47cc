// Package metadata reads the convention tables that describe a vocabulary
// source: namespaces, declared concept schemes, declared collections and the
// index of relationship tables.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semvocab/naming"
	"github.com/c360studio/semvocab/source"
)

// ErrNoIdentifier is returned when a declaration row has a blank identifier.
var ErrNoIdentifier = errors.New("metadata: row has no identifier")

// Column names of the convention tables.
const (
	FieldNamespace           = "namespace"
	FieldConceptNamespace    = "conceptNamespace"
	FieldSchemeNamespace     = "schemeNamespace"
	FieldCollectionNamespace = "collectionNamespace"

	FieldID           = "id"
	FieldFormat       = "format"
	FieldConcepts     = "concepts"
	FieldDeclarations = "declarations"
	FieldLanguages    = "languages"
	FieldSort         = "sort"
	FieldMembers      = "members"
	FieldSchemes      = "schemes"
	FieldTable        = "table"
)

// Tables names the convention tables of a source.
type Tables struct {
	Config            string `yaml:"config"`
	Schemes           string `yaml:"schemes"`
	Collections       string `yaml:"collections"`
	Members           string `yaml:"members"`
	CollectionMembers string `yaml:"collection_members"`
	Relationships     string `yaml:"relationships"`
}

// DefaultTables returns the conventional table names.
func DefaultTables() Tables {
	return Tables{
		Config:            "config",
		Schemes:           "schemes",
		Collections:       "collections",
		Members:           "members",
		CollectionMembers: "collection_members",
		Relationships:     "relationships",
	}
}

// WithDefaults fills blank names from DefaultTables.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	if t.Config == "" {
		t.Config = d.Config
	}
	if t.Schemes == "" {
		t.Schemes = d.Schemes
	}
	if t.Collections == "" {
		t.Collections = d.Collections
	}
	if t.Members == "" {
		t.Members = d.Members
	}
	if t.CollectionMembers == "" {
		t.CollectionMembers = d.CollectionMembers
	}
	if t.Relationships == "" {
		t.Relationships = d.Relationships
	}
	return t
}

// Namespaces holds the base namespace and the per-kind suffixes.
type Namespaces struct {
	Base       string
	Concept    string
	Scheme     string
	Collection string
}

// ConceptNamespace is the namespace concept identifiers resolve against.
func (n Namespaces) ConceptNamespace() string { return n.Base + n.Concept }

// SchemeNamespace is the namespace scheme identifiers resolve against.
func (n Namespaces) SchemeNamespace() string { return n.Base + n.Scheme }

// CollectionNamespace is the namespace collection identifiers resolve against.
func (n Namespaces) CollectionNamespace() string { return n.Base + n.Collection }

// Format is the layout of a scheme's concept definition tables.
type Format int

const (
	// FormatTabular tables hold one concept per row.
	FormatTabular Format = iota
	// FormatTriple tables hold (subject, predicate, object) rows.
	FormatTriple
)

func (f Format) String() string {
	if f == FormatTriple {
		return "triple"
	}
	return "tabular"
}

// ParseFormat accepts "tabular" or "triple"; blank means tabular.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tabular", "table":
		return FormatTabular, nil
	case "triple", "triples":
		return FormatTriple, nil
	default:
		return FormatTabular, fmt.Errorf("unknown format %q", s)
	}
}

// Scheme describes one declared concept scheme.
type Scheme struct {
	URI              string
	Format           Format
	ConceptTables    []string
	DeclarationTable string
	Languages        []string
	Sort             string

	// Row is the declaring row; its annotation columns describe the scheme.
	Row source.Row
}

// Collection describes one declared collection.
type Collection struct {
	URI         string
	MemberTable string
	Schemes     []string
	Languages   []string
	Sort        string

	Row source.Row
}

// ReadNamespaces reads the first non-blank row of the config table. A
// missing table yields empty namespaces and the source error.
func ReadNamespaces(ctx context.Context, src source.Source, table string) (Namespaces, error) {
	t, err := src.Open(ctx, table)
	if err != nil {
		return Namespaces{}, err
	}
	defer t.Close()

	if !t.Next() {
		return Namespaces{}, t.Err()
	}
	row := t.Row()
	return Namespaces{
		Base:       row.Text(FieldNamespace),
		Concept:    row.Text(FieldConceptNamespace),
		Scheme:     row.Text(FieldSchemeNamespace),
		Collection: row.Text(FieldCollectionNamespace),
	}, nil
}

// ParseScheme builds a Scheme from one row of the schemes table.
func ParseScheme(row source.Row, ns Namespaces) (Scheme, error) {
	uri, ok := naming.Resolve(row.Text(FieldID), ns.SchemeNamespace())
	if !ok {
		return Scheme{}, ErrNoIdentifier
	}
	format, err := ParseFormat(row.Text(FieldFormat))
	if err != nil {
		return Scheme{}, err
	}
	return Scheme{
		URI:              uri,
		Format:           format,
		ConceptTables:    row.Values(FieldConcepts),
		DeclarationTable: row.Text(FieldDeclarations),
		Languages:        row.Values(FieldLanguages),
		Sort:             row.Text(FieldSort),
		Row:              row,
	}, nil
}

// ParseCollection builds a Collection from one row of the collections table.
// Scheme references stay unresolved.
func ParseCollection(row source.Row, ns Namespaces) (Collection, error) {
	uri, ok := naming.Resolve(row.Text(FieldID), ns.CollectionNamespace())
	if !ok {
		return Collection{}, ErrNoIdentifier
	}
	return Collection{
		URI:         uri,
		MemberTable: row.Text(FieldMembers),
		Schemes:     row.Values(FieldSchemes),
		Languages:   row.Values(FieldLanguages),
		Sort:        row.Text(FieldSort),
		Row:         row,
	}, nil
}

// SkipFunc is told about every declaration row that could not be parsed.
type SkipFunc func(table string, row source.Row, err error)

// ReadSchemes reads every valid row of the schemes table. Invalid rows are
// passed to skip, or logged when skip is nil.
func ReadSchemes(ctx context.Context, src source.Source, table string, ns Namespaces, skip SkipFunc) ([]Scheme, error) {
	return readAll(ctx, src, table, skip, func(row source.Row) (Scheme, error) {
		return ParseScheme(row, ns)
	})
}

// ReadCollections reads every valid row of the collections table. Invalid
// rows are handled like in ReadSchemes.
func ReadCollections(ctx context.Context, src source.Source, table string, ns Namespaces, skip SkipFunc) ([]Collection, error) {
	return readAll(ctx, src, table, skip, func(row source.Row) (Collection, error) {
		return ParseCollection(row, ns)
	})
}

// ReadRelationshipTables lists the tables named by the relationship index,
// in index order and without duplicates.
func ReadRelationshipTables(ctx context.Context, src source.Source, table string) ([]string, error) {
	t, err := src.Open(ctx, table)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	if err := t.Header().Require(FieldTable); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for t.Next() {
		name := t.Row().Text(FieldTable)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, t.Err()
}

func logSkip(table string, row source.Row, err error) {
	slog.Warn("Skipping declaration row", "table", table, "row", row.Number(), "error", err)
}

func readAll[T any](ctx context.Context, src source.Source, table string, skip SkipFunc, parse func(source.Row) (T, error)) ([]T, error) {
	if skip == nil {
		skip = logSkip
	}
	t, err := src.Open(ctx, table)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	if err := t.Header().Require(FieldID); err != nil {
		return nil, err
	}

	var out []T
	for t.Next() {
		row := t.Row()
		rec, err := parse(row)
		if err != nil {
			skip(table, row, err)
			continue
		}
		out = append(out, rec)
	}
	return out, t.Err()
}
