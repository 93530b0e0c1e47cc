package skos

// Namespace is the SKOS core namespace.
const Namespace = "http://www.w3.org/2004/02/skos/core#"

// OntologyNamespace holds terms SKOS itself does not define (collection
// membership inverses and their transitive forms).
const OntologyNamespace = "https://semvocab.dev/ontology/"

// Class IRIs.
const (
	ClassConceptScheme = Namespace + "ConceptScheme"
	ClassConcept       = Namespace + "Concept"
	ClassCollection    = Namespace + "Collection"
)

// Resource description IRIs.
const (
	IRIRdfType  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	IRIResource = OntologyNamespace + "iri"
)

// Annotation property IRIs.
const (
	IRIPrefLabel     = Namespace + "prefLabel"
	IRIAltLabel      = Namespace + "altLabel"
	IRIHiddenLabel   = Namespace + "hiddenLabel"
	IRINotation      = Namespace + "notation"
	IRIDefinition    = Namespace + "definition"
	IRINote          = Namespace + "note"
	IRIScopeNote     = Namespace + "scopeNote"
	IRIExample       = Namespace + "example"
	IRIHistoryNote   = Namespace + "historyNote"
	IRIEditorialNote = Namespace + "editorialNote"
	IRIChangeNote    = Namespace + "changeNote"

	IRIDcTitle       = "http://purl.org/dc/terms/title"
	IRIDcDescription = "http://purl.org/dc/terms/description"
	IRIRdfsLabel     = "http://www.w3.org/2000/01/rdf-schema#label"
	IRIRdfsComment   = "http://www.w3.org/2000/01/rdf-schema#comment"
)

// Semantic relation IRIs.
const (
	IRISemanticRelation   = Namespace + "semanticRelation"
	IRIBroader            = Namespace + "broader"
	IRINarrower           = Namespace + "narrower"
	IRIRelated            = Namespace + "related"
	IRIBroaderTransitive  = Namespace + "broaderTransitive"
	IRINarrowerTransitive = Namespace + "narrowerTransitive"
	IRIMappingRelation    = Namespace + "mappingRelation"
	IRICloseMatch         = Namespace + "closeMatch"
	IRIExactMatch         = Namespace + "exactMatch"
	IRIBroadMatch         = Namespace + "broadMatch"
	IRINarrowMatch        = Namespace + "narrowMatch"
	IRIRelatedMatch       = Namespace + "relatedMatch"
)

// Element relation IRIs.
const (
	IRIInScheme           = Namespace + "inScheme"
	IRITopConceptOf       = Namespace + "topConceptOf"
	IRIHasTopConcept      = Namespace + "hasTopConcept"
	IRIMember             = Namespace + "member"
	IRIMemberOf           = OntologyNamespace + "memberOf"
	IRIMemberTransitive   = OntologyNamespace + "memberTransitive"
	IRIMemberOfTransitive = OntologyNamespace + "memberOfTransitive"
)
