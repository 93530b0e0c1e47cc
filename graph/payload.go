package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// ResourceType identifies messages that describe one SKOS resource.
var ResourceType = message.Type{Domain: "skos", Category: "resource", Version: "v1"}

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      ResourceType.Domain,
		Category:    ResourceType.Category,
		Version:     ResourceType.Version,
		Description: "SKOS scheme, concept or collection with its labels and relations",
		Factory:     func() any { return &ResourcePayload{} },
	})
	if err != nil {
		panic("register skos resource payload: " + err.Error())
	}
}

// ResourcePayload is a finished scheme, concept or collection as the search
// indexer consumes it. Triples hold the rdf type, the IRI, every annotation
// as "text@lang" and every relation. Relation objects that are themselves
// published resources are given by their entity ID.
type ResourcePayload struct {
	ID         string           `json:"id"`
	IRI        string           `json:"iri"`
	Kind       string           `json:"kind"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (r *ResourcePayload) EntityID() string          { return r.ID }
func (r *ResourcePayload) Triples() []message.Triple { return r.TripleData }
func (r *ResourcePayload) Schema() message.Type      { return ResourceType }

// Validate rejects payloads the indexer could not key or would index empty.
func (r *ResourcePayload) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("resource payload: missing entity id")
	case r.IRI == "":
		return errors.New("resource payload: missing iri")
	case len(r.TripleData) == 0:
		return errors.New("resource payload: no triples")
	}
	return nil
}

// resourceFields has the payload layout without its methods, so encoding
// does not recurse.
type resourceFields ResourcePayload

func (r *ResourcePayload) MarshalJSON() ([]byte, error) {
	return json.Marshal((*resourceFields)(r))
}

func (r *ResourcePayload) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, (*resourceFields)(r))
}
