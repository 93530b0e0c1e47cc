// Package config provides configuration loading and management for semvocab.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semvocab/export"
	"github.com/c360studio/semvocab/ingest"
	"github.com/c360studio/semvocab/metadata"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendBadger    = "badger"
	BackendJetStream = "jetstream"
)

// Config represents the complete semvocab configuration.
type Config struct {
	Source  SourceConfig    `yaml:"source"`
	Tables  metadata.Tables `yaml:"tables"`
	Ingest  IngestConfig    `yaml:"ingest"`
	Store   StoreConfig     `yaml:"store"`
	NATS    NATSConfig      `yaml:"nats"`
	Export  ExportConfig    `yaml:"export"`
	Metrics MetricsConfig   `yaml:"metrics"`
}

// SourceConfig locates the tabular source.
type SourceConfig struct {
	// Dir is the directory holding the CSV tables.
	Dir string `yaml:"dir"`
	// Pattern is a doublestar glob relative to Dir.
	Pattern string `yaml:"pattern"`
	// Separator joins multiple values inside one cell.
	Separator string `yaml:"separator"`
	// Delimiter is the CSV field delimiter.
	Delimiter string `yaml:"delimiter"`
	// Debounce is the quiet period of watch mode before re-ingesting.
	Debounce time.Duration `yaml:"debounce"`
}

// IngestConfig holds the inference and buffering options.
type IngestConfig struct {
	InferInverse    bool `yaml:"infer_inverse"`
	InferSuper      bool `yaml:"infer_super"`
	InferClosure    bool `yaml:"infer_closure"`
	IncrementalSync bool `yaml:"incremental_sync"`
	BufferSize      int  `yaml:"buffer_size"`
}

// StoreConfig selects the graph store backend.
type StoreConfig struct {
	// Backend is memory, badger or jetstream.
	Backend string `yaml:"backend"`
	// Dir is the badger data directory.
	Dir string `yaml:"dir"`
	// Bucket is the JetStream KV bucket.
	Bucket string `yaml:"bucket"`
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = no connection)
	URL string `yaml:"url"`
	// Publish sends finished entities to Subject after a run.
	Publish bool   `yaml:"publish"`
	Subject string `yaml:"subject"`
}

// ExportConfig configures RDF export after a run. Empty Path disables it.
type ExportConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:       ".",
			Pattern:   source.DefaultPattern,
			Separator: source.DefaultSeparator,
			Delimiter: ",",
			Debounce:  source.DefaultDebounce,
		},
		Tables: metadata.DefaultTables(),
		Ingest: IngestConfig{
			InferInverse: true,
			InferSuper:   true,
			InferClosure: true,
			BufferSize:   ingest.DefaultBufferSize,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Dir:     ".semvocab/store",
			Bucket:  storage.DefaultBucket,
		},
		NATS: NATSConfig{
			Subject: "graph.ingest.entity",
		},
		Export: ExportConfig{
			Format: string(export.FormatTurtle),
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Source.Dir == "" {
		errs = append(errs, errors.New("source.dir is required"))
	}
	if c.Source.Separator == "" {
		errs = append(errs, errors.New("source.separator is required"))
	}
	if utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("source.delimiter must be a single character, got %q", c.Source.Delimiter))
	}
	if c.Source.Debounce < 0 {
		errs = append(errs, errors.New("source.debounce must not be negative"))
	}
	if c.Ingest.BufferSize < 0 {
		errs = append(errs, errors.New("ingest.buffer_size must not be negative"))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the badger backend"))
		}
	case BackendJetStream:
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required for the jetstream backend"))
		}
		if c.Store.Bucket == "" {
			errs = append(errs, errors.New("store.bucket is required for the jetstream backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of memory, badger, jetstream, got %q", c.Store.Backend))
	}

	if c.NATS.Publish {
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required to publish"))
		}
		if c.NATS.Subject == "" {
			errs = append(errs, errors.New("nats.subject is required to publish"))
		}
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// IngestOptions converts the ingest and tables sections for the pipeline.
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		InferInverse:    c.Ingest.InferInverse,
		InferSuper:      c.Ingest.InferSuper,
		IncrementalSync: c.Ingest.IncrementalSync,
		BufferSize:      c.Ingest.BufferSize,
		Tables:          c.Tables.WithDefaults(),
	}
}

// CSVOptions converts the source section.
func (c *Config) CSVOptions() source.CSVOptions {
	delim, _ := utf8.DecodeRuneInString(c.Source.Delimiter)
	return source.CSVOptions{
		Dir:       c.Source.Dir,
		Pattern:   c.Source.Pattern,
		Separator: c.Source.Separator,
		Comma:     delim,
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.apply(path); err != nil {
		return nil, err
	}
	return config, nil
}

// apply decodes the file at path over c. Keys the file omits keep their
// current values, which is what makes layering work.
func (c *Config) apply(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
