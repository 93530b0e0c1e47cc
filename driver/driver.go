// Package driver runs a complete vocabulary build: ingestion, closure per
// relation family, then the optional publication and RDF export of the result.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/google/uuid"

	"github.com/c360studio/semvocab/closure"
	"github.com/c360studio/semvocab/export"
	"github.com/c360studio/semvocab/graph"
	"github.com/c360studio/semvocab/ingest"
	"github.com/c360studio/semvocab/metrics"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
	"github.com/c360studio/semvocab/vocabulary/skos"
)

// Options selects what a run does beyond ingestion.
type Options struct {
	Ingest ingest.Options

	// InferClosure runs the closure engine after a successful ingestion.
	InferClosure bool

	// Families limits the closure to these families. Nil runs all of them.
	Families []closure.Family
}

// Report is the outcome of one run.
type Report struct {
	RunID     string
	Ingest    ingest.Report
	Closure   []closure.Result
	Published int
	Exported  string
	Success   bool
	Duration  time.Duration
}

// Driver runs builds against one store and source.
type Driver struct {
	store     storage.Store
	src       source.Source
	opts      Options
	vocab     *skos.Vocabulary
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *graph.Publisher

	exporter     *export.Exporter
	exportFormat export.Format
	exportPath   string
}

// Option configures a Driver.
type Option func(*Driver)

// WithVocabulary replaces the default SKOS property vocabulary.
func WithVocabulary(v *skos.Vocabulary) Option {
	return func(d *Driver) { d.vocab = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithMetrics records run, stage and closure metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithPublisher publishes every resource after a successful run.
func WithPublisher(p *graph.Publisher) Option {
	return func(d *Driver) { d.publisher = p }
}

// WithExport writes the finished graph to path after a successful run.
func WithExport(format export.Format, path string) Option {
	return func(d *Driver) {
		d.exportFormat = format
		d.exportPath = path
	}
}

// New creates a driver.
func New(store storage.Store, src source.Source, opts Options, options ...Option) *Driver {
	d := &Driver{
		store:    store,
		src:      src,
		opts:     opts,
		exporter: export.NewExporter(),
	}
	for _, o := range options {
		o(d)
	}
	if d.vocab == nil {
		d.vocab = skos.Default()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.exportFormat == "" {
		d.exportFormat = export.FormatTurtle
	}
	return d
}

// Run performs one build. A hard failure in any phase stops the run and is
// returned together with the partial report.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	logger := d.logger.With("run_id", report.RunID)

	err := d.run(ctx, logger, &report)
	report.Duration = time.Since(start)
	report.Success = err == nil && report.Ingest.Success
	d.metrics.IncrementRun(report.Success)

	if err != nil {
		logger.Error("Run failed", "error", err, "duration", report.Duration)
		return report, err
	}
	logger.Info("Run complete",
		"added", report.Ingest.Added(),
		"closure_runs", len(report.Closure),
		"published", report.Published,
		"duration", report.Duration)
	return report, nil
}

func (d *Driver) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	pipeline := ingest.New(d.store, d.src, d.opts.Ingest,
		ingest.WithVocabulary(d.vocab),
		ingest.WithLogger(logger),
		ingest.WithMetrics(d.metrics))
	ingestReport, err := pipeline.Run(ctx)
	report.Ingest = ingestReport
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if d.opts.InferClosure {
		engine := closure.New(d.store,
			closure.WithVocabulary(d.vocab),
			closure.WithLogger(logger),
			closure.WithMetrics(d.metrics))
		families := d.opts.Families
		if families == nil {
			families = closure.Families
		}
		for _, f := range families {
			res, err := engine.Run(ctx, f)
			if err != nil {
				return fmt.Errorf("closure %s: %w", f, err)
			}
			report.Closure = append(report.Closure, res)
		}
	}

	if d.publisher != nil {
		n, err := d.publisher.Publish(ctx, d.store)
		report.Published = n
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}

	if d.exportPath != "" {
		if err := d.export(ctx); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		report.Exported = d.exportPath
		logger.Info("Exported graph", "path", d.exportPath, "format", d.exportFormat)
	}
	return nil
}

// export writes to a temporary file next to the target and renames it, so
// readers never see a partial document.
func (d *Driver) export(ctx context.Context) error {
	dir := filepath.Dir(d.exportPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.WrapFatal(err, "driver", "export", "create export directory")
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return errs.WrapFatal(err, "driver", "export", "create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := d.exporter.Export(ctx, tmp, d.store, d.exportFormat); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errs.WrapFatal(err, "driver", "export", "close temp file")
	}
	if err := os.Rename(tmp.Name(), d.exportPath); err != nil {
		return errs.WrapFatal(err, "driver", "export", "rename export file")
	}
	return nil
}

// Watch runs a build for every change received until ctx is done or changes
// is closed. Failed builds are logged; fatal ones end the loop.
func (d *Driver) Watch(ctx context.Context, changes <-chan source.Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			d.logger.Info("Source changed, rebuilding", "tables", change.Tables)
			if _, err := d.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errs.IsFatal(err) {
					return err
				}
			}
		}
	}
}
