package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"
)

// FactType distinguishes the three kinds of journaled facts.
type FactType uint8

const (
	FactResource FactType = iota + 1
	FactAnnotation
	FactRelation
)

// Fact is one journaled change to the graph. Seq orders replay.
type Fact struct {
	Seq       uint64   `msgpack:"q"`
	Type      FactType `msgpack:"t"`
	Kind      Kind     `msgpack:"k,omitempty"`
	Subject   string   `msgpack:"s"`
	Predicate string   `msgpack:"p,omitempty"`
	Object    string   `msgpack:"o,omitempty"`
	Language  string   `msgpack:"l,omitempty"`
}

// Key identifies the fact independently of Seq. Resource facts are keyed by
// identifier only.
func (f Fact) Key() string {
	h := sha256.New()
	h.Write([]byte{byte(f.Type)})
	h.Write([]byte(f.Subject))
	if f.Type != FactResource {
		for _, part := range []string{f.Predicate, f.Object, f.Language} {
			h.Write([]byte{0})
			h.Write([]byte(part))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode serializes the fact with msgpack.
func (f Fact) Encode() ([]byte, error) {
	return msgpack.Marshal(&f)
}

// DecodeFact parses a fact written by Encode.
func DecodeFact(data []byte) (Fact, error) {
	var f Fact
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// Backend persists journaled facts.
type Backend interface {
	// Load calls fn for every stored fact, in no particular order.
	Load(ctx context.Context, fn func(Fact) error) error

	// Commit stores facts. Re-committing a fact with the same Key is harmless.
	Commit(ctx context.Context, facts []Fact) error

	Close() error
}
