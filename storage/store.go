// Package storage holds the vocabulary graph: concept schemes, concepts and
// collections, their annotations, and the typed relations between them.
//
// Graph keeps the whole graph indexed in memory and records every new fact in
// a journal. Synchronize hands the journal to a Backend (badger on disk, or a
// JetStream KV bucket), and Open replays a backend into a fresh Graph.
package storage

import (
	"context"
	"iter"

	"github.com/c360studio/semvocab/vocabulary/skos"
)

// Kind is the type of a resource.
type Kind uint8

const (
	KindNone Kind = iota
	KindConceptScheme
	KindConcept
	KindCollection
)

// Kinds lists the resource kinds in stage order.
var Kinds = []Kind{KindConceptScheme, KindConcept, KindCollection}

func (k Kind) String() string {
	switch k {
	case KindConceptScheme:
		return "ConceptScheme"
	case KindConcept:
		return "Concept"
	case KindCollection:
		return "Collection"
	default:
		return "None"
	}
}

// ClassIRI returns the SKOS class of the kind.
func (k Kind) ClassIRI() string {
	switch k {
	case KindConceptScheme:
		return skos.ClassConceptScheme
	case KindConcept:
		return skos.ClassConcept
	case KindCollection:
		return skos.ClassCollection
	default:
		return ""
	}
}

// Annotation is a language-tagged text attached to a resource. Property is
// the property IRI.
type Annotation struct {
	Property string
	Language string
	Text     string
}

// Edge is a directed typed relation. Predicate is the property IRI.
type Edge struct {
	Subject   string
	Predicate string
	Object    string
}

// Store is the graph the ingestion pipeline and closure engine write to.
// Implementations need not be safe for concurrent writers.
type Store interface {
	// Ensure creates the resource if it does not exist. It returns
	// ErrKindConflict if uri already denotes a resource of another kind.
	Ensure(ctx context.Context, kind Kind, uri string) (created bool, err error)

	// KindOf returns the kind of uri, or ErrNotFound.
	KindOf(ctx context.Context, uri string) (Kind, error)

	// AddAnnotation attaches a to uri. Exact duplicates are not re-added.
	AddAnnotation(ctx context.Context, uri string, a Annotation) (added bool, err error)

	// AddRelation asserts (s, p, o). Redundant calls are harmless.
	AddRelation(ctx context.Context, s, p, o string) error

	// AddRelationIfAbsent asserts (s, p, o) only if it is not present.
	AddRelationIfAbsent(ctx context.Context, s, p, o string) (added bool, err error)

	HasRelation(ctx context.Context, s, p, o string) (bool, error)

	// Resources iterates the resources of kind in creation order.
	Resources(ctx context.Context, kind Kind) iter.Seq2[string, error]

	// Objects returns the objects of (s, p, *) in assertion order.
	Objects(ctx context.Context, s, p string) ([]string, error)

	// Outgoing returns every edge with subject s.
	Outgoing(ctx context.Context, s string) ([]Edge, error)

	Annotations(ctx context.Context, uri string) ([]Annotation, error)

	// Synchronize commits pending facts to durable storage.
	Synchronize(ctx context.Context) error

	Close() error
}
