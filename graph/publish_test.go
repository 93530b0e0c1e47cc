package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	failures int
}

func (r *recordingPublisher) PublishToStream(_ context.Context, subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	r.subjects = append(r.subjects, subject)
	r.messages = append(r.messages, data)
	return nil
}

func sampleStore(t *testing.T) storage.Store {
	t.Helper()
	ctx := context.Background()
	g := storage.NewGraph()
	_, err := g.Ensure(ctx, storage.KindConceptScheme, "urn:s")
	require.NoError(t, err)
	_, err = g.Ensure(ctx, storage.KindConcept, "urn:a")
	require.NoError(t, err)
	_, err = g.AddAnnotation(ctx, "urn:a", storage.Annotation{Property: skos.IRIPrefLabel, Language: "en", Text: "Sensor"})
	require.NoError(t, err)
	require.NoError(t, g.AddRelation(ctx, "urn:a", skos.IRIInScheme, "urn:s"))
	require.NoError(t, g.AddRelation(ctx, "urn:a", skos.IRIExactMatch, "urn:external"))
	return g
}

func TestEntityID(t *testing.T) {
	id := EntityID(storage.KindConcept, "urn:a")
	assert.True(t, strings.HasPrefix(id, "semvocab.local.vocabulary.skos.concept."))
	assert.Len(t, strings.Split(id, "."), 6)
	assert.Equal(t, id, EntityID(storage.KindConcept, "urn:a"))
	assert.NotEqual(t, id, EntityID(storage.KindConcept, "urn:b"))
}

func TestBuildEntity(t *testing.T) {
	store := sampleStore(t)
	p := NewPublisher(&recordingPublisher{})

	entity, err := p.BuildEntity(context.Background(), store, storage.KindConcept, "urn:a")
	require.NoError(t, err)
	require.NoError(t, entity.Validate())

	objects := make(map[string]any)
	for _, tr := range entity.Triples() {
		assert.Equal(t, entity.EntityID(), tr.Subject)
		objects[tr.Predicate] = tr.Object
	}
	assert.Equal(t, skos.ClassConcept, objects[skos.PredicateType])
	assert.Equal(t, "urn:a", objects[skos.PredicateIRI])
	assert.Equal(t, "Sensor@en", objects[skos.PredicatePrefLabel])
	assert.Equal(t, EntityID(storage.KindConceptScheme, "urn:s"), objects[skos.PredicateInScheme])
	assert.Equal(t, "urn:external", objects[skos.PredicateExactMatch])
}

func TestPublish(t *testing.T) {
	rec := &recordingPublisher{failures: 1}
	p := NewPublisher(rec, WithRetry(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}))

	n, err := p.Publish(context.Background(), sampleStore(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.messages, 2)
	assert.Equal(t, []string{GraphIngestSubject, GraphIngestSubject}, rec.subjects)

	var wire struct {
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.messages[0], &wire))
	var payload ResourcePayload
	require.NoError(t, json.Unmarshal(wire.Payload, &payload))
	assert.Equal(t, EntityID(storage.KindConceptScheme, "urn:s"), payload.EntityID())
	assert.Equal(t, "urn:s", payload.IRI)
	assert.Equal(t, storage.KindConceptScheme.String(), payload.Kind)
	require.NoError(t, payload.Validate())
}

func TestPublishWithoutClient(t *testing.T) {
	n, err := NewPublisher(nil).Publish(context.Background(), sampleStore(t))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
