package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semvocab/ingest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.Store.Backend)
	}
	if cfg.Ingest.BufferSize != ingest.DefaultBufferSize {
		t.Errorf("expected buffer size %d, got %d", ingest.DefaultBufferSize, cfg.Ingest.BufferSize)
	}
	if !cfg.Ingest.InferInverse || !cfg.Ingest.InferSuper || !cfg.Ingest.InferClosure {
		t.Error("expected all inference options on by default")
	}
	if cfg.Tables.Schemes != "schemes" {
		t.Errorf("expected schemes table name, got %q", cfg.Tables.Schemes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing source dir",
			modify:  func(c *Config) { c.Source.Dir = "" },
			wantErr: true,
		},
		{
			name:    "multi-character delimiter",
			modify:  func(c *Config) { c.Source.Delimiter = ";;" },
			wantErr: true,
		},
		{
			name:    "negative buffer size",
			modify:  func(c *Config) { c.Ingest.BufferSize = -1 },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: true,
		},
		{
			name:    "badger without dir",
			modify:  func(c *Config) { c.Store.Backend = BackendBadger; c.Store.Dir = "" },
			wantErr: true,
		},
		{
			name:    "jetstream without nats url",
			modify:  func(c *Config) { c.Store.Backend = BackendJetStream },
			wantErr: true,
		},
		{
			name: "jetstream with nats url",
			modify: func(c *Config) {
				c.Store.Backend = BackendJetStream
				c.NATS.URL = "nats://localhost:4222"
			},
			wantErr: false,
		},
		{
			name:    "publish without nats url",
			modify:  func(c *Config) { c.NATS.Publish = true },
			wantErr: true,
		},
		{
			name:    "unknown export format",
			modify:  func(c *Config) { c.Export.Format = "rdfxml" },
			wantErr: true,
		},
		{
			name:    "metrics without address",
			modify:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Address = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
source:
  dir: "/data/vocab"
  delimiter: ";"
  debounce: 2s
tables:
  schemes: "concept_schemes"
ingest:
  infer_super: false
  buffer_size: 1000
store:
  backend: badger
  dir: "/var/lib/semvocab"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Source.Dir != "/data/vocab" {
		t.Errorf("expected source dir /data/vocab, got %s", cfg.Source.Dir)
	}
	if cfg.Source.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Source.Debounce)
	}
	if cfg.Tables.Schemes != "concept_schemes" {
		t.Errorf("expected schemes table concept_schemes, got %s", cfg.Tables.Schemes)
	}
	// Keys the file omits keep their defaults.
	if cfg.Tables.Collections != "collections" {
		t.Errorf("expected collections table to remain default, got %q", cfg.Tables.Collections)
	}
	if !cfg.Ingest.InferInverse {
		t.Error("expected infer_inverse to remain true")
	}
	if cfg.Ingest.InferSuper {
		t.Error("expected infer_super false")
	}
	if cfg.Store.Backend != BackendBadger || cfg.Store.Dir != "/var/lib/semvocab" {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}

	opts := cfg.IngestOptions()
	if opts.BufferSize != 1000 || opts.InferSuper {
		t.Errorf("unexpected ingest options %+v", opts)
	}
	if csv := cfg.CSVOptions(); csv.Comma != ';' {
		t.Errorf("expected ';' delimiter, got %q", csv.Comma)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("model:\n  default: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Ingest.InferClosure = false
	cfg.Source.Debounce = 750 * time.Millisecond

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Ingest.InferClosure {
		t.Error("expected infer_closure false after round trip")
	}
	if loaded.Source.Debounce != 750*time.Millisecond {
		t.Errorf("expected debounce 750ms, got %v", loaded.Source.Debounce)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "nested", "dir")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatal(err)
	}

	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(home, UserConfigDir, UserConfigFile), "ingest:\n  buffer_size: 10\nstore:\n  bucket: USER\n")
	write(filepath.Join(project, ProjectConfigFile), "ingest:\n  buffer_size: 20\n")
	explicit := filepath.Join(t.TempDir(), "run.yaml")
	write(explicit, "export:\n  format: ntriples\n")

	cfg, err := NewLoader(nil).WithDirs(home, work).Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.BufferSize != 20 {
		t.Errorf("expected project buffer size 20, got %d", cfg.Ingest.BufferSize)
	}
	if cfg.Store.Bucket != "USER" {
		t.Errorf("expected user bucket, got %s", cfg.Store.Bucket)
	}
	if cfg.Export.Format != "ntriples" {
		t.Errorf("expected explicit export format, got %s", cfg.Export.Format)
	}
}

func TestLoaderWithoutFiles(t *testing.T) {
	cfg, err := NewLoader(nil).WithDirs(t.TempDir(), t.TempDir()).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("expected defaults, got %+v", cfg.Store)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	l := NewLoader(nil).WithDirs(home, t.TempDir())
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, UserConfigDir, UserConfigFile)); err != nil {
		t.Errorf("user config not created: %v", err)
	}
}
