package skos

import "github.com/c360studio/semstreams/vocabulary"

// Property names as they appear in source tables.
const (
	PrefLabel     = "prefLabel"
	AltLabel      = "altLabel"
	HiddenLabel   = "hiddenLabel"
	Notation      = "notation"
	Definition    = "definition"
	Note          = "note"
	ScopeNote     = "scopeNote"
	Example       = "example"
	HistoryNote   = "historyNote"
	EditorialNote = "editorialNote"
	ChangeNote    = "changeNote"
	Title         = "title"
	Description   = "description"
	Label         = "label"
	Comment       = "comment"

	SemanticRelation   = "semanticRelation"
	Broader            = "broader"
	Narrower           = "narrower"
	Related            = "related"
	BroaderTransitive  = "broaderTransitive"
	NarrowerTransitive = "narrowerTransitive"
	MappingRelation    = "mappingRelation"
	CloseMatch         = "closeMatch"
	ExactMatch         = "exactMatch"
	BroadMatch         = "broadMatch"
	NarrowMatch        = "narrowMatch"
	RelatedMatch       = "relatedMatch"

	InScheme           = "inScheme"
	TopConceptOf       = "topConceptOf"
	HasTopConcept      = "hasTopConcept"
	Member             = "member"
	MemberOf           = "memberOf"
	MemberTransitive   = "memberTransitive"
	MemberOfTransitive = "memberOfTransitive"
)

// Dotted predicates registered with the semstreams predicate registry.
const (
	PredicatePrefLabel     = "skos.label.preferred"
	PredicateAltLabel      = "skos.label.alternate"
	PredicateHiddenLabel   = "skos.label.hidden"
	PredicateNotation      = "skos.label.notation"
	PredicateDefinition    = "skos.documentation.definition"
	PredicateNote          = "skos.documentation.note"
	PredicateScopeNote     = "skos.documentation.scope_note"
	PredicateExample       = "skos.documentation.example"
	PredicateHistoryNote   = "skos.documentation.history_note"
	PredicateEditorialNote = "skos.documentation.editorial_note"
	PredicateChangeNote    = "skos.documentation.change_note"
	PredicateTitle         = "dc.terms.title"
	PredicateDescription   = "dc.terms.description"
	PredicateLabel         = "rdfs.schema.label"
	PredicateComment       = "rdfs.schema.comment"

	PredicateSemanticRelation   = "skos.semantic.relation"
	PredicateBroader            = "skos.semantic.broader"
	PredicateNarrower           = "skos.semantic.narrower"
	PredicateRelated            = "skos.semantic.related"
	PredicateBroaderTransitive  = "skos.semantic.broader_transitive"
	PredicateNarrowerTransitive = "skos.semantic.narrower_transitive"
	PredicateMappingRelation    = "skos.mapping.relation"
	PredicateCloseMatch         = "skos.mapping.close_match"
	PredicateExactMatch         = "skos.mapping.exact_match"
	PredicateBroadMatch         = "skos.mapping.broad_match"
	PredicateNarrowMatch        = "skos.mapping.narrow_match"
	PredicateRelatedMatch       = "skos.mapping.related_match"

	PredicateInScheme           = "skos.scheme.in_scheme"
	PredicateTopConceptOf       = "skos.scheme.top_concept_of"
	PredicateHasTopConcept      = "skos.scheme.has_top_concept"
	PredicateMember             = "skos.collection.member"
	PredicateMemberOf           = "skos.collection.member_of"
	PredicateMemberTransitive   = "skos.collection.member_transitive"
	PredicateMemberOfTransitive = "skos.collection.member_of_transitive"

	// PredicateType carries the resource class, PredicateIRI the resource identifier.
	PredicateType = "skos.resource.type"
	PredicateIRI  = "skos.resource.iri"
)

// defaultProperties is the built-in property table. Order is irrelevant;
// super-property lists are ordered.
var defaultProperties = []Property{
	annotation(PrefLabel, IRIPrefLabel, PredicatePrefLabel, "Preferred lexical label"),
	annotation(AltLabel, IRIAltLabel, PredicateAltLabel, "Alternative lexical label"),
	annotation(HiddenLabel, IRIHiddenLabel, PredicateHiddenLabel, "Label for search, not display"),
	annotation(Notation, IRINotation, PredicateNotation, "Code within a concept scheme"),
	annotation(Definition, IRIDefinition, PredicateDefinition, "Formal definition"),
	annotation(Note, IRINote, PredicateNote, "General note"),
	annotation(ScopeNote, IRIScopeNote, PredicateScopeNote, "Scope of meaning"),
	annotation(Example, IRIExample, PredicateExample, "Usage example"),
	annotation(HistoryNote, IRIHistoryNote, PredicateHistoryNote, "Past state or use"),
	annotation(EditorialNote, IRIEditorialNote, PredicateEditorialNote, "Editorial information"),
	annotation(ChangeNote, IRIChangeNote, PredicateChangeNote, "Fine-grained change record"),
	annotation(Title, IRIDcTitle, PredicateTitle, "Title"),
	annotation(Description, IRIDcDescription, PredicateDescription, "Description"),
	annotation(Label, IRIRdfsLabel, PredicateLabel, "Generic label"),
	annotation(Comment, IRIRdfsComment, PredicateComment, "Generic comment"),

	semantic(SemanticRelation, IRISemanticRelation, PredicateSemanticRelation, "Any semantic link", SemanticRelation),
	semantic(Broader, IRIBroader, PredicateBroader, "Direct parent concept", Narrower, BroaderTransitive),
	semantic(Narrower, IRINarrower, PredicateNarrower, "Direct child concept", Broader, NarrowerTransitive),
	semantic(Related, IRIRelated, PredicateRelated, "Associative link", Related, SemanticRelation),
	semantic(BroaderTransitive, IRIBroaderTransitive, PredicateBroaderTransitive, "Ancestor concept", NarrowerTransitive, SemanticRelation),
	semantic(NarrowerTransitive, IRINarrowerTransitive, PredicateNarrowerTransitive, "Descendant concept", BroaderTransitive, SemanticRelation),
	semantic(MappingRelation, IRIMappingRelation, PredicateMappingRelation, "Link to a concept in another scheme", MappingRelation, SemanticRelation),
	semantic(CloseMatch, IRICloseMatch, PredicateCloseMatch, "Close cross-scheme match", CloseMatch, MappingRelation),
	semantic(ExactMatch, IRIExactMatch, PredicateExactMatch, "Exact cross-scheme match", ExactMatch, CloseMatch),
	semantic(BroadMatch, IRIBroadMatch, PredicateBroadMatch, "Broader cross-scheme match", NarrowMatch, Broader, MappingRelation),
	semantic(NarrowMatch, IRINarrowMatch, PredicateNarrowMatch, "Narrower cross-scheme match", BroadMatch, Narrower, MappingRelation),
	semantic(RelatedMatch, IRIRelatedMatch, PredicateRelatedMatch, "Associative cross-scheme match", RelatedMatch, Related, MappingRelation),

	element(InScheme, IRIInScheme, PredicateInScheme, "Scheme membership", ""),
	element(TopConceptOf, IRITopConceptOf, PredicateTopConceptOf, "Top concept of scheme", HasTopConcept, InScheme),
	element(HasTopConcept, IRIHasTopConcept, PredicateHasTopConcept, "Scheme top concept", TopConceptOf),
	element(Member, IRIMember, PredicateMember, "Direct collection member", MemberOf, MemberTransitive),
	element(MemberOf, IRIMemberOf, PredicateMemberOf, "Direct parent collection", Member, MemberOfTransitive),
	element(MemberTransitive, IRIMemberTransitive, PredicateMemberTransitive, "Direct or nested collection member", MemberOfTransitive),
	element(MemberOfTransitive, IRIMemberOfTransitive, PredicateMemberOfTransitive, "Direct or enclosing collection", MemberTransitive),
}

func annotation(name, iri, predicate, desc string) Property {
	return Property{Name: name, IRI: iri, Predicate: predicate, Description: desc, Kind: KindAnnotation}
}

func semantic(name, iri, predicate, desc, inverse string, supers ...string) Property {
	return Property{Name: name, IRI: iri, Predicate: predicate, Description: desc,
		Kind: KindSemanticRelation, Inverse: inverse, Supers: supers}
}

func element(name, iri, predicate, desc, inverse string, supers ...string) Property {
	return Property{Name: name, IRI: iri, Predicate: predicate, Description: desc,
		Kind: KindElementRelation, Inverse: inverse, Supers: supers}
}

func init() {
	for _, p := range defaultProperties {
		dataType := "entity_id"
		if p.Kind == KindAnnotation {
			dataType = "string"
		}
		vocabulary.Register(p.Predicate,
			vocabulary.WithDescription(p.Description),
			vocabulary.WithDataType(dataType),
			vocabulary.WithIRI(p.IRI))
	}
	vocabulary.Register(PredicateType,
		vocabulary.WithDescription("Class of a vocabulary resource"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(IRIRdfType))
	vocabulary.Register(PredicateIRI,
		vocabulary.WithDescription("Absolute identifier of a vocabulary resource"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(IRIResource))
}
