// Package skos provides the property vocabulary used to build SKOS concept
// schemes from tabular sources.
//
// Properties are addressed three ways:
//   - Name: the case-sensitive local name used in source tables ("narrower")
//   - IRI: the standard IRI stored in the graph (skos:narrower)
//   - Predicate: dotted notation registered with the semstreams predicate
//     registry ("skos.semantic.narrower") and used on NATS graph messages
//
// # Property Kinds
//
// Every property has a kind:
//
//	annotation        prefLabel, altLabel, definition, ... (language-tagged text)
//	semantic relation broader, narrower, related, *Transitive, semanticRelation, mapping relations
//	element relation  inScheme, topConceptOf, hasTopConcept, member, memberOf, member*Transitive
//
// Relation properties carry an optional inverse and an ordered list of direct
// super-properties. Unknown names resolve to KindUnknown; callers skip them.
//
// # Usage
//
//	vocab := skos.Default()
//	p, ok := vocab.Lookup("narrower")
//	if !ok {
//	    // skip row, unknown predicate
//	}
//	inv, _ := vocab.Inverse(p)      // broader
//	supers := vocab.Supers(p)       // [narrowerTransitive]
//
// A Vocabulary is an explicit value. Build a custom one with New when the
// default table does not fit.
package skos
