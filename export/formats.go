package export

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// FormatInfo describes the media type and file extension of a format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string
	Description string
}

var formatInfo = []FormatInfo{
	{FormatTurtle, "text/turtle", ".ttl", "Turtle - Terse RDF Triple Language"},
	{FormatNTriples, "application/n-triples", ".nt", "N-Triples - Line-based RDF format"},
	{FormatJSONLD, "application/ld+json", ".jsonld", "JSON-LD - JSON for Linked Data"},
}

// Formats lists the supported formats.
func Formats() []FormatInfo {
	return slices.Clone(formatInfo)
}

// Info returns the media type and extension of f.
func (f Format) Info() (FormatInfo, bool) {
	i := slices.IndexFunc(formatInfo, func(fi FormatInfo) bool { return fi.Name == f })
	if i < 0 {
		return FormatInfo{}, false
	}
	return formatInfo[i], true
}

// TurtleWriter renders subject blocks, shortening IRIs with known prefixes.
type TurtleWriter struct {
	prefixes map[string]string
	buf      strings.Builder
}

// NewTurtleWriter copies prefixes; later changes to the map are not seen.
func NewTurtleWriter(prefixes map[string]string) *TurtleWriter {
	return &TurtleWriter{prefixes: maps.Clone(prefixes)}
}

// WritePrefixes writes the @prefix header in sorted order.
func (w *TurtleWriter) WritePrefixes() {
	for _, p := range slices.Sorted(maps.Keys(w.prefixes)) {
		fmt.Fprintf(&w.buf, "@prefix %s: <%s> .\n", p, w.prefixes[p])
	}
	w.buf.WriteByte('\n')
}

// WriteNode writes one subject block followed by a blank line. Nodes with
// nothing to say are omitted.
func (w *TurtleWriter) WriteNode(n Node) {
	pairs := make([]string, 0, len(n.Types)+len(n.Literals)+len(n.Links))
	for _, t := range n.Types {
		pairs = append(pairs, "a "+w.term(t))
	}
	for _, l := range n.Literals {
		pairs = append(pairs, w.term(l.Property)+" "+literal(l.Text, l.Language))
	}
	for _, l := range n.Links {
		pairs = append(pairs, w.term(l.Property)+" "+w.term(l.Object))
	}
	if len(pairs) == 0 {
		return
	}

	w.buf.WriteString(w.term(n.IRI))
	w.buf.WriteByte('\n')
	last := len(pairs) - 1
	for i, pair := range pairs {
		end := ";"
		if i == last {
			end = "."
		}
		fmt.Fprintf(&w.buf, "    %s %s\n", pair, end)
	}
	w.buf.WriteByte('\n')
}

func (w *TurtleWriter) term(iri string) string {
	if short := compact(w.prefixes, iri); short != "" {
		return short
	}
	return "<" + iri + ">"
}

func (w *TurtleWriter) String() string { return w.buf.String() }

// NTriplesWriter renders one statement per line with full IRIs.
type NTriplesWriter struct {
	buf strings.Builder
}

func NewNTriplesWriter() *NTriplesWriter { return &NTriplesWriter{} }

// WriteLink writes a statement whose object is an IRI.
func (w *NTriplesWriter) WriteLink(subject, predicate, object string) {
	fmt.Fprintf(&w.buf, "<%s> <%s> <%s> .\n", subject, predicate, object)
}

// WriteLiteral writes a statement whose object is a literal.
func (w *NTriplesWriter) WriteLiteral(subject, predicate, text, language string) {
	fmt.Fprintf(&w.buf, "<%s> <%s> %s .\n", subject, predicate, literal(text, language))
}

func (w *NTriplesWriter) String() string { return w.buf.String() }

// JSONLDDocument is a flattened JSON-LD document.
type JSONLDDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []JSONLDNode      `json:"@graph"`
}

// JSONLDNode is one node object. Properties are keyed by full property IRI.
type JSONLDNode struct {
	ID         string
	Type       []string
	Properties map[string]any
}

// MarshalJSON writes @id and @type next to the properties.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(n.Properties)+2)
	maps.Copy(obj, n.Properties)
	obj["@id"] = n.ID
	if len(n.Type) > 0 {
		obj["@type"] = n.Type
	}
	return json.Marshal(obj)
}

// JSONLDWriter accumulates nodes into one document.
type JSONLDWriter struct {
	doc JSONLDDocument
}

func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{doc: JSONLDDocument{
		Context: map[string]string{},
		Graph:   []JSONLDNode{},
	}}
}

// SetContext adds prefixes to @context.
func (w *JSONLDWriter) SetContext(prefixes map[string]string) {
	maps.Copy(w.doc.Context, prefixes)
}

func (w *JSONLDWriter) AddNode(id string, types []string, properties map[string]any) {
	w.doc.Graph = append(w.doc.Graph, JSONLDNode{ID: id, Type: types, Properties: properties})
}

// String returns the indented document.
func (w *JSONLDWriter) String() (string, error) {
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json-ld: %w", err)
	}
	return string(data) + "\n", nil
}
