// Package export serializes a vocabulary graph to RDF (Turtle, N-Triples and
// JSON-LD).
package export

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Literal is a language-tagged text value.
type Literal struct {
	Property string
	Text     string
	Language string
}

// Link is an IRI-valued property.
type Link struct {
	Property string
	Object   string
}

// Node is one resource with everything asserted about it.
type Node struct {
	IRI      string
	Types    []string
	Literals []Literal
	Links    []Link
}

// Exporter serializes nodes with a fixed set of namespace prefixes.
type Exporter struct {
	prefixes map[string]string
}

// NewExporter creates an exporter with the default prefixes.
func NewExporter() *Exporter {
	return &Exporter{prefixes: defaultPrefixes()}
}

// SetPrefix adds or replaces a namespace prefix.
func (e *Exporter) SetPrefix(prefix, iri string) {
	e.prefixes[prefix] = iri
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":      "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":     "http://www.w3.org/2000/01/rdf-schema#",
		"dc":       "http://purl.org/dc/terms/",
		"skos":     skos.Namespace,
		"semvocab": skos.OntologyNamespace,
	}
}

// Collect reads every scheme, concept and collection from the store.
func Collect(ctx context.Context, store storage.Store) ([]Node, error) {
	var nodes []Node
	for _, kind := range storage.Kinds {
		for uri, err := range store.Resources(ctx, kind) {
			if err != nil {
				return nil, fmt.Errorf("list %s resources: %w", kind, err)
			}
			node := Node{IRI: uri, Types: []string{kind.ClassIRI()}}

			anns, err := store.Annotations(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("annotations of %s: %w", uri, err)
			}
			for _, a := range anns {
				node.Literals = append(node.Literals, Literal{Property: a.Property, Text: a.Text, Language: a.Language})
			}

			edges, err := store.Outgoing(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("relations of %s: %w", uri, err)
			}
			for _, e := range edges {
				node.Links = append(node.Links, Link{Property: e.Predicate, Object: e.Object})
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// Export writes the store contents to w in the given format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, store storage.Store, format Format) error {
	nodes, err := Collect(ctx, store)
	if err != nil {
		return err
	}
	out, err := e.Serialize(nodes, format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Serialize renders nodes in the given format.
func (e *Exporter) Serialize(nodes []Node, format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(nodes), nil
	case FormatNTriples:
		return toNTriples(nodes), nil
	case FormatJSONLD:
		return e.toJSONLD(nodes)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (e *Exporter) toTurtle(nodes []Node) string {
	w := NewTurtleWriter(e.prefixes)
	w.WritePrefixes()
	for _, n := range nodes {
		w.WriteNode(n)
	}
	return w.String()
}

func toNTriples(nodes []Node) string {
	w := NewNTriplesWriter()
	for _, n := range nodes {
		for _, t := range n.Types {
			w.WriteLink(n.IRI, skos.IRIRdfType, t)
		}
		for _, l := range n.Literals {
			w.WriteLiteral(n.IRI, l.Property, l.Text, l.Language)
		}
		for _, l := range n.Links {
			w.WriteLink(n.IRI, l.Property, l.Object)
		}
	}
	return w.String()
}

func (e *Exporter) toJSONLD(nodes []Node) (string, error) {
	w := NewJSONLDWriter()
	w.SetContext(e.prefixes)
	for _, n := range nodes {
		props := make(map[string]any)
		for _, l := range n.Literals {
			v := map[string]string{"@value": l.Text}
			if l.Language != "" {
				v["@language"] = l.Language
			}
			props[l.Property] = appendValue(props[l.Property], v)
		}
		for _, l := range n.Links {
			props[l.Property] = appendValue(props[l.Property], map[string]string{"@id": l.Object})
		}
		w.AddNode(n.IRI, n.Types, props)
	}
	return w.String()
}

func appendValue(existing any, v map[string]string) any {
	list, _ := existing.([]map[string]string)
	return append(list, v)
}

// compact shortens iri to prefix:local when a prefix matches and the local
// part is a plain name. It returns "" otherwise.
func compact(prefixes map[string]string, iri string) string {
	for _, prefix := range slices.Sorted(maps.Keys(prefixes)) {
		ns := prefixes[prefix]
		local, ok := strings.CutPrefix(iri, ns)
		if !ok || !plainName(local) {
			continue
		}
		return prefix + ":" + local
	}
	return ""
}

func plainName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

func literal(text, language string) string {
	if language == "" {
		return fmt.Sprintf("\"%s\"", escapeString(text))
	}
	return fmt.Sprintf("\"%s\"@%s", escapeString(text), language)
}
