package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket facts are stored in.
const DefaultBucket = "SEMVOCAB_FACTS"

// kvBucket is the subset of jetstream.KeyValue the backend uses.
type kvBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error)
}

// JetStreamBackend persists facts in a NATS JetStream KV bucket, one entry
// per fact.
type JetStreamBackend struct {
	kv kvBucket
}

// NewJetStreamBackend opens the bucket, creating it if needed. A blank
// bucket name uses DefaultBucket.
func NewJetStreamBackend(ctx context.Context, js jetstream.JetStream, bucket string) (*JetStreamBackend, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create %s bucket: %w", bucket, err)
	}
	return &JetStreamBackend{kv: kv}, nil
}

// getOrCreateBucket gets an existing KV bucket or creates it.
func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semvocab %s storage", strings.ToLower(name)),
		History:     1,
	})
}

func (j *JetStreamBackend) Load(ctx context.Context, fn func(Fact) error) error {
	keys, err := j.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return fmt.Errorf("list fact keys: %w", err)
	}
	for _, key := range keys {
		entry, err := j.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return fmt.Errorf("get fact %s: %w", key, err)
		}
		f, err := DecodeFact(entry.Value())
		if err != nil {
			return fmt.Errorf("decode fact %s: %w", key, err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (j *JetStreamBackend) Commit(ctx context.Context, facts []Fact) error {
	for _, f := range facts {
		val, err := f.Encode()
		if err != nil {
			return fmt.Errorf("encode fact: %w", err)
		}
		if _, err := j.kv.Put(ctx, f.Key(), val); err != nil {
			return fmt.Errorf("put fact: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the NATS connection is owned by the caller.
func (j *JetStreamBackend) Close() error { return nil }
