package skos

// Kind classifies a property.
type Kind int

// Property kinds.
const (
	KindUnknown Kind = iota
	KindAnnotation
	KindSemanticRelation
	KindElementRelation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAnnotation:
		return "annotation"
	case KindSemanticRelation:
		return "semantic_relation"
	case KindElementRelation:
		return "element_relation"
	default:
		return "unknown"
	}
}

// IsRelation reports whether the kind links two resources.
func (k Kind) IsRelation() bool {
	return k == KindSemanticRelation || k == KindElementRelation
}

// Property describes one vocabulary term.
type Property struct {
	Name        string
	IRI         string
	Predicate   string
	Description string
	Kind        Kind

	// Inverse is the name of the inverse property, empty if none.
	Inverse string

	// Supers lists the names of the direct super-properties in order.
	Supers []string
}

// Vocabulary is a read-only property table keyed by case-sensitive name.
type Vocabulary struct {
	byName map[string]Property
	byIRI  map[string]string
}

// New builds a vocabulary from the given properties. Later entries with the
// same name replace earlier ones.
func New(props ...Property) *Vocabulary {
	v := &Vocabulary{
		byName: make(map[string]Property, len(props)),
		byIRI:  make(map[string]string, len(props)),
	}
	for _, p := range props {
		v.byName[p.Name] = p
		v.byIRI[p.IRI] = p.Name
	}
	return v
}

// Default returns a vocabulary holding the built-in SKOS property table.
func Default() *Vocabulary {
	return New(defaultProperties...)
}

// Lookup returns the property with the given name.
func (v *Vocabulary) Lookup(name string) (Property, bool) {
	p, ok := v.byName[name]
	return p, ok
}

// KindOf returns the kind of the named property, KindUnknown if absent.
func (v *Vocabulary) KindOf(name string) Kind {
	if p, ok := v.byName[name]; ok {
		return p.Kind
	}
	return KindUnknown
}

// ByIRI returns the property stored under the given IRI.
func (v *Vocabulary) ByIRI(iri string) (Property, bool) {
	name, ok := v.byIRI[iri]
	if !ok {
		return Property{}, false
	}
	return v.Lookup(name)
}

// Inverse returns the inverse of p, if it has one.
func (v *Vocabulary) Inverse(p Property) (Property, bool) {
	if p.Inverse == "" {
		return Property{}, false
	}
	return v.Lookup(p.Inverse)
}

// Supers returns the direct super-properties of p in declaration order.
// Names missing from the vocabulary are dropped.
func (v *Vocabulary) Supers(p Property) []Property {
	if len(p.Supers) == 0 {
		return nil
	}
	out := make([]Property, 0, len(p.Supers))
	for _, name := range p.Supers {
		if sp, ok := v.byName[name]; ok {
			out = append(out, sp)
		}
	}
	return out
}

// MustLookup returns the named property and panics if it is missing.
// Use only for names the package itself defines.
func (v *Vocabulary) MustLookup(name string) Property {
	p, ok := v.Lookup(name)
	if !ok {
		panic("skos: property not in vocabulary: " + name)
	}
	return p
}
