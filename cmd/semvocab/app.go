package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semvocab/closure"
	"github.com/c360studio/semvocab/config"
	"github.com/c360studio/semvocab/driver"
	"github.com/c360studio/semvocab/export"
	"github.com/c360studio/semvocab/graph"
	"github.com/c360studio/semvocab/metrics"
	"github.com/c360studio/semvocab/source"
	"github.com/c360studio/semvocab/storage"
)

// graphStreamName is created when no stream covers the publish subject.
const graphStreamName = "SEMVOCAB_GRAPH"

type runFlags struct {
	sourceDir       string
	pattern         string
	backend         string
	storeDir        string
	inferInverse    bool
	inferSuper      bool
	inferClosure    bool
	incrementalSync bool
	bufferSize      int
	exportPath      string
	format          string
	publish         bool
	natsURL         string
	metricsAddr     string
	watch           bool
}

func runCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"ingest"},
		Short:   "Ingest the CSV tables and compute the closure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, f.watch, logger)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.sourceDir, "source", "s", "", "Directory holding the CSV tables")
	fl.StringVar(&f.pattern, "pattern", "", "Glob selecting table files, relative to the source directory")
	fl.StringVar(&f.backend, "backend", "", "Store backend (memory, badger, jetstream)")
	fl.StringVar(&f.storeDir, "store-dir", "", "Badger data directory")
	fl.BoolVar(&f.inferInverse, "infer-inverse", true, "Assert inverse relations")
	fl.BoolVar(&f.inferSuper, "infer-super", true, "Assert super-property relations")
	fl.BoolVar(&f.inferClosure, "closure", true, "Compute the transitive closure after ingestion")
	fl.BoolVar(&f.incrementalSync, "incremental-sync", false, "Synchronize the store after every stage")
	fl.IntVar(&f.bufferSize, "buffer-size", 0, "Facts added between store synchronizations")
	fl.StringVarP(&f.exportPath, "export", "o", "", "Write the finished graph to this file")
	fl.StringVar(&f.format, "format", "", "Export format (turtle, ntriples, jsonld)")
	fl.BoolVar(&f.publish, "publish", false, "Publish the finished graph to NATS")
	fl.StringVar(&f.natsURL, "nats-url", "", "NATS server URL")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fl.BoolVarP(&f.watch, "watch", "w", false, "Rebuild whenever the source tables change")
	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("source") {
		cfg.Source.Dir = f.sourceDir
	}
	if set("pattern") {
		cfg.Source.Pattern = f.pattern
	}
	if set("backend") {
		cfg.Store.Backend = f.backend
	}
	if set("store-dir") {
		cfg.Store.Dir = f.storeDir
	}
	if set("infer-inverse") {
		cfg.Ingest.InferInverse = f.inferInverse
	}
	if set("infer-super") {
		cfg.Ingest.InferSuper = f.inferSuper
	}
	if set("closure") {
		cfg.Ingest.InferClosure = f.inferClosure
	}
	if set("incremental-sync") {
		cfg.Ingest.IncrementalSync = f.incrementalSync
	}
	if set("buffer-size") {
		cfg.Ingest.BufferSize = f.bufferSize
	}
	if set("export") {
		cfg.Export.Path = f.exportPath
	}
	if set("format") {
		cfg.Export.Format = f.format
	}
	if set("publish") {
		cfg.NATS.Publish = f.publish
	}
	if set("nats-url") {
		cfg.NATS.URL = f.natsURL
	}
	if set("metrics-addr") {
		cfg.Metrics.Enabled = f.metricsAddr != ""
		cfg.Metrics.Address = f.metricsAddr
	}
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, watch bool, logger *slog.Logger) error {
	nc, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close(context.Background())
	}

	store, err := openStore(ctx, cfg, nc, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	csvOpts := cfg.CSVOptions()
	csvOpts.Logger = logger
	src, err := source.NewCSVDir(csvOpts)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		stop := serveMetrics(cfg.Metrics.Address, reg, logger)
		defer stop()
	}

	opts := []driver.Option{driver.WithLogger(logger), driver.WithMetrics(m)}
	if cfg.NATS.Publish {
		if err := ensureStream(ctx, nc, cfg.NATS.Subject, logger); err != nil {
			return err
		}
		opts = append(opts, driver.WithPublisher(graph.NewPublisher(nc,
			graph.WithSubject(cfg.NATS.Subject),
			graph.WithLogger(logger))))
	}
	if cfg.Export.Path != "" {
		format, err := export.ParseFormat(cfg.Export.Format)
		if err != nil {
			return err
		}
		opts = append(opts, driver.WithExport(format, cfg.Export.Path))
	}

	d := driver.New(store, src, driver.Options{
		Ingest:       cfg.IngestOptions(),
		InferClosure: cfg.Ingest.InferClosure,
	}, opts...)

	report, err := d.Run(ctx)
	printReport(out, report)
	if err != nil {
		return err
	}
	if !watch {
		return nil
	}

	w, err := source.NewWatcher(src, cfg.Source.Debounce, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("Watching for changes", "dir", src.Dir())
	return d.Watch(ctx, w.Changes())
}

func closureCmd(g *globalFlags) *cobra.Command {
	var families []string
	cmd := &cobra.Command{
		Use:   "closure",
		Short: "Compute the transitive closure of a persisted graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			if err := requirePersistent(cfg); err != nil {
				return err
			}

			selected := closure.Families
			if len(families) > 0 {
				selected = nil
				for _, name := range families {
					f, err := closure.ParseFamily(name)
					if err != nil {
						return err
					}
					selected = append(selected, f)
				}
			}

			ctx := cmd.Context()
			return withStore(ctx, cfg, logger, func(store storage.Store) error {
				engine := closure.New(store, closure.WithLogger(logger))
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FAMILY\tSEEDS\tADDED\tDURATION")
				defer tw.Flush()
				for _, f := range selected {
					res, err := engine.Run(ctx, f)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", res.Family, res.Seeds, res.Added, res.Duration.Round(time.Millisecond))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&families, "family", nil, "Relation families to close (semantic, membership)")
	return cmd
}

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a persisted graph as RDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			if err := requirePersistent(cfg); err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.Format
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return withStore(ctx, cfg, logger, func(store storage.Store) error {
				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					file, err := os.Create(output)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				return export.NewExporter().Export(ctx, w, store, f)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func requirePersistent(cfg *config.Config) error {
	if cfg.Store.Backend == config.BackendMemory {
		return errors.New("this command needs a persistent store backend (badger or jetstream)")
	}
	return cfg.Validate()
}

// withStore opens the configured store, runs fn and closes everything.
func withStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(storage.Store) error) error {
	nc, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close(context.Background())
	}
	store, err := openStore(ctx, cfg, nc, logger)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

func openStore(ctx context.Context, cfg *config.Config, nc *natsclient.Client, logger *slog.Logger) (*storage.Graph, error) {
	var backend storage.Backend
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return storage.NewGraph(storage.WithLogger(logger)), nil
	case config.BackendBadger:
		b, err := storage.NewBadgerBackend(storage.BadgerOptions{Dir: cfg.Store.Dir})
		if err != nil {
			return nil, err
		}
		backend = b
	case config.BackendJetStream:
		js, err := nc.JetStream()
		if err != nil {
			return nil, err
		}
		b, err := storage.NewJetStreamBackend(ctx, js, cfg.Store.Bucket)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	store, err := storage.Open(ctx, backend, storage.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

// connect returns nil when no NATS URL is configured.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	url := cfg.NATS.URL
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		url = envURL
	}
	if url == "" {
		return nil, nil
	}

	logger.Info("Connecting to NATS", "url", url)
	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides guidance when the NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server with JetStream enabled (nats-server -js) or set
NATS_URL to point to your NATS server.`, err, url)
	}
	return fmt.Errorf("NATS connection failed: %w", err)
}

// ensureStream creates a stream for subject unless one already covers it.
func ensureStream(ctx context.Context, nc *natsclient.Client, subject string, logger *slog.Logger) error {
	js, err := nc.JetStream()
	if err != nil {
		return err
	}
	name, err := js.StreamNameBySubject(ctx, subject)
	switch {
	case err == nil:
		logger.Debug("Publishing to existing stream", "stream", name, "subject", subject)
		return nil
	case !errors.Is(err, jetstream.ErrStreamNotFound):
		return fmt.Errorf("look up stream for %s: %w", subject, err)
	}

	if _, err := nc.CreateStream(ctx, jetstream.StreamConfig{
		Name:     graphStreamName,
		Subjects: []string{subject},
	}); err != nil {
		return fmt.Errorf("create stream %s: %w", graphStreamName, err)
	}
	logger.Info("Created stream", "stream", graphStreamName, "subject", subject)
	return nil
}

// serveMetrics starts the metrics endpoint and returns a function that stops it.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printReport(out io.Writer, r driver.Report) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "run %s\tsuccess=%t\t%s\n", r.RunID, r.Success, r.Duration.Round(time.Millisecond))
	fmt.Fprintln(tw, "STAGE\tADDED\tSKIPPED\tDURATION")
	for _, s := range r.Ingest.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Stage, s.Added, s.Skipped, s.Duration.Round(time.Millisecond))
	}
	for _, c := range r.Closure {
		fmt.Fprintf(tw, "closure:%s\t%d\t-\t%s\n", c.Family, c.Added, c.Duration.Round(time.Millisecond))
	}
	if r.Published > 0 {
		fmt.Fprintf(tw, "published\t%d\t-\t-\n", r.Published)
	}
	if r.Exported != "" {
		fmt.Fprintf(tw, "exported\t%s\t-\t-\n", r.Exported)
	}
}

func printConfig(out io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
