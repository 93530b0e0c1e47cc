package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	badger "github.com/dgraph-io/badger/v4"
)

var factPrefix = []byte("fact:")

// BadgerOptions configures a BadgerBackend.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger sets the badger logger. If nil, only warnings and errors are
	// logged.
	Logger badger.Logger
}

// BadgerBackend persists facts in an embedded BadgerDB.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (or creates) a BadgerDB.
func NewBadgerBackend(opts BadgerOptions) (*BadgerBackend, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("storage: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Load(ctx context.Context, fn func(Fact) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = factPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(factPrefix); it.ValidForPrefix(factPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			f, err := DecodeFact(val)
			if err != nil {
				return fmt.Errorf("decode fact %s: %w", it.Item().Key(), err)
			}
			if err := fn(f); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Commit(_ context.Context, facts []Fact) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, f := range facts {
		val, err := f.Encode()
		if err != nil {
			return fmt.Errorf("encode fact: %w", err)
		}
		key := append(append([]byte(nil), factPrefix...), f.Key()...)
		if err := wb.Set(key, val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// quietLogger drops badger's debug and info output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
