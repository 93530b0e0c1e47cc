// Package graph publishes the finished vocabulary to the knowledge graph as
// one entity message per resource.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/pkg/retry"

	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// GraphIngestSubject is the subject entity messages are published on.
const GraphIngestSubject = "graph.ingest.entity"

// DefaultSource names this producer in triples and message metadata.
const DefaultSource = "semvocab.ingest"

// StreamPublisher is satisfied by *natsclient.Client.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Publisher turns store resources into entity messages.
type Publisher struct {
	nc      StreamPublisher
	subject string
	source  string
	vocab   *skos.Vocabulary
	retry   retry.Config
	logger  *slog.Logger
	now     func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithSubject overrides GraphIngestSubject.
func WithSubject(subject string) PublisherOption {
	return func(p *Publisher) {
		if subject != "" {
			p.subject = subject
		}
	}
}

// WithRetry sets the retry policy for each publish.
func WithRetry(cfg retry.Config) PublisherOption {
	return func(p *Publisher) { p.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithVocabulary replaces the default SKOS property vocabulary.
func WithVocabulary(v *skos.Vocabulary) PublisherOption {
	return func(p *Publisher) { p.vocab = v }
}

// NewPublisher creates a publisher. A nil nc makes Publish a no-op.
func NewPublisher(nc StreamPublisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		nc:      nc,
		subject: GraphIngestSubject,
		source:  DefaultSource,
		vocab:   skos.Default(),
		retry:   retry.DefaultConfig(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// EntityID derives a stable dotted entity ID for a resource.
// Format: semvocab.local.vocabulary.skos.<kind>.<hash>
func EntityID(kind storage.Kind, uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return fmt.Sprintf("semvocab.local.vocabulary.skos.%s.%s",
		strings.ToLower(kind.String()), hex.EncodeToString(sum[:8]))
}

// Publish sends one message per scheme, concept and collection. It returns
// the number of entities published.
func (p *Publisher) Publish(ctx context.Context, store storage.Store) (int, error) {
	if p.nc == nil {
		return 0, nil
	}
	n := 0
	for _, kind := range storage.Kinds {
		for uri, err := range store.Resources(ctx, kind) {
			if err != nil {
				return n, fmt.Errorf("list %s resources: %w", kind, err)
			}
			entity, err := p.BuildEntity(ctx, store, kind, uri)
			if err != nil {
				return n, err
			}
			if err := p.send(ctx, entity); err != nil {
				return n, err
			}
			n++
		}
	}
	p.logger.Info("Vocabulary published", "subject", p.subject, "entities", n)
	return n, nil
}

// BuildEntity collects the triples describing one resource. Relation
// objects are referenced by entity ID when they are known resources.
func (p *Publisher) BuildEntity(ctx context.Context, store storage.Store, kind storage.Kind, uri string) (*ResourcePayload, error) {
	id := EntityID(kind, uri)
	now := p.now()
	triple := func(predicate string, object any) message.Triple {
		return message.Triple{
			Subject:    id,
			Predicate:  predicate,
			Object:     object,
			Source:     p.source,
			Timestamp:  now,
			Confidence: 1.0,
		}
	}

	triples := []message.Triple{
		triple(skos.PredicateType, kind.ClassIRI()),
		triple(skos.PredicateIRI, uri),
	}

	anns, err := store.Annotations(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("read annotations of %s: %w", uri, err)
	}
	for _, a := range anns {
		prop, ok := p.vocab.ByIRI(a.Property)
		if !ok {
			continue
		}
		object := a.Text
		if a.Language != "" {
			object = a.Text + "@" + a.Language
		}
		triples = append(triples, triple(prop.Predicate, object))
	}

	edges, err := store.Outgoing(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("read edges of %s: %w", uri, err)
	}
	for _, e := range edges {
		prop, ok := p.vocab.ByIRI(e.Predicate)
		if !ok {
			continue
		}
		object := e.Object
		k, err := store.KindOf(ctx, e.Object)
		switch {
		case err == nil:
			object = EntityID(k, e.Object)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("look up %s: %w", e.Object, err)
		}
		triples = append(triples, triple(prop.Predicate, object))
	}

	return &ResourcePayload{
		ID:         id,
		IRI:        uri,
		Kind:       kind.String(),
		TripleData: triples,
		UpdatedAt:  now,
	}, nil
}

func (p *Publisher) send(ctx context.Context, entity *ResourcePayload) error {
	msg := message.NewBaseMessage(ResourceType, entity, p.source)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal entity message: %w", err)
	}
	err = retry.Do(ctx, p.retry, func() error {
		return p.nc.PublishToStream(ctx, p.subject, data)
	})
	if err != nil {
		p.logger.Warn("Failed to publish entity",
			"entity_id", entity.ID,
			"error", err,
			"retryable", !retry.IsNonRetryable(err))
		return fmt.Errorf("publish entity %s: %w", entity.ID, err)
	}
	return nil
}
