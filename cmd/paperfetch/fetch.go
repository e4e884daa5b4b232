// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/catalog"
	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/mirror"
	"github.com/pdiddy/paperfetch/internal/provider"
	"github.com/pdiddy/paperfetch/internal/report"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [DOIs...]",
	Short: "Download PDFs for a list of DOIs",
	Long: `Fetch resolves each DOI to a PDF and saves it in the output directory.
Identifiers come from the arguments, from --file (one per line, # comments
allowed), or from the failed list of the previous run with --retry-failed.
Files already present are skipped. Press Ctrl-C to cancel: running downloads
stop at their next checkpoint and unstarted ones are reported as cancelled.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringP("file", "f", "", "read identifiers from a file")
	f.Bool("retry-failed", false, "retry the identifiers in the failed list of the previous run")
	f.Bool("append-failed", false, "keep earlier entries in the failed list instead of truncating it")
	f.IntP("concurrency", "c", types.DefaultMaxConcurrency, "DOIs processed at once")
	f.Int("metadata-workers", types.DefaultMetadataWorkers, "concurrent metadata lookups per DOI")
	f.String("report", "", "write a run summary to this path (.yaml or .json)")
	f.String("mirror", "", "copy downloaded PDFs to a bucket URL (file:///dir, s3://bucket?region=...)")
	f.String("mirror-prefix", "", "key prefix inside the mirror bucket")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while the run lasts")
	f.String("db", "", "history database (default <output-dir>/"+catalog.DefaultFile+")")
	f.Bool("no-history", false, "do not record the run in the history database")

	_ = viper.BindPFlag("max_concurrency", f.Lookup("concurrency"))
	_ = viper.BindPFlag("metadata_workers", f.Lookup("metadata-workers"))
	_ = viper.BindPFlag("append_failed", f.Lookup("append-failed"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadFetchConfig()
	retry, appendFailed := failedListMode(cmd)
	cfg.AppendFailed = appendFailed

	failed := acquire.NewFailedList(cfg.OutputDir, cfg.FailedListName)
	raws, err := collectIdentifiers(cmd, args, failed, retry)
	if err != nil {
		return err
	}
	dois, rejected := acquire.NormalizeAll(raws)
	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "invalid: %q is not a DOI\n", r)
	}
	if len(dois) == 0 {
		return fmt.Errorf("no valid DOIs to fetch")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec acquire.Recorder
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec = metrics.New(reg)
		shutdown := serveMetrics(addr, reg)
		defer shutdown()
	}

	sink, err := openSinks(ctx, cmd, cfg, failed)
	if err != nil {
		return err
	}
	defer sink.close()

	client := httputil.NewClient(cfg.HTTPConfig, logger)
	set := provider.NewSet(cfg, client, logger)
	pipe := acquire.NewPipeline(set, acquire.PipelineConfig{
		OutputDir:       cfg.OutputDir,
		MetadataWorkers: cfg.MetadataWorkers,
		Recorder:        rec,
		Logger:          logger,
	})
	coord := acquire.NewCoordinator(pipe, acquire.CoordinatorConfig{
		MaxConcurrency: cfg.MaxConcurrency,
		FailedList:     failed,
		AppendFailed:   cfg.AppendFailed,
		Logger:         logger,
	})
	stopCancel := context.AfterFunc(ctx, coord.Cancel)
	defer stopCancel()

	fmt.Fprintf(os.Stdout, "Fetching %d DOI(s) into %s (run %s)\n", len(dois), cfg.OutputDir, coord.RunID())
	stats := consume(ctx, coord.Run(ctx, dois), os.Stdout, sink, coord.RunID())

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %d DOI(s) cancelled", stats.Cancelled)
	}
	if stats.HasFailures() {
		return fmt.Errorf("%d DOI(s) failed; see %s", stats.Failed, failed.Path())
	}
	return nil
}

// failedListMode reports whether this is a retry run and whether the failed
// list keeps its earlier entries. Only a fresh run truncates the list, so
// --retry-failed implies --append-failed.
func failedListMode(cmd *cobra.Command) (retry, appendFailed bool) {
	retry, _ = cmd.Flags().GetBool("retry-failed")
	return retry, viper.GetBool("append_failed") || retry
}

// collectIdentifiers merges arguments, --file and (with --retry-failed) the
// failed list, in that order.
func collectIdentifiers(cmd *cobra.Command, args []string, failed *acquire.FailedList, retry bool) ([]string, error) {
	raws := append([]string(nil), args...)

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening identifier file: %w", err)
		}
		ids, err := acquire.ReadIdentifiers(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		raws = append(raws, ids...)
	}

	if retry {
		ids, err := failed.Read()
		if err != nil {
			return nil, fmt.Errorf("reading failed list: %w", err)
		}
		if len(ids) == 0 && len(raws) == 0 {
			return nil, fmt.Errorf("failed list %s is empty", failed.Path())
		}
		raws = append(raws, ids...)
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("provide one or more DOIs, --file, or --retry-failed")
	}
	return raws, nil
}

// sinks are the optional consumers of a run's events beyond the progress
// lines: history database, bucket mirror and summary report.
type sinks struct {
	store      *catalog.Store
	mirror     *mirror.Mirror
	reportPath string
	builder    *report.Builder
	failedPath string
	outputDir  string
}

func openSinks(ctx context.Context, cmd *cobra.Command, cfg types.FetchConfig, failed *acquire.FailedList) (*sinks, error) {
	s := &sinks{failedPath: failed.Path(), outputDir: cfg.OutputDir}

	if off, _ := cmd.Flags().GetBool("no-history"); !off {
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = filepath.Join(cfg.OutputDir, catalog.DefaultFile)
		}
		store, err := catalog.Open(dbPath)
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	if bucket, _ := cmd.Flags().GetString("mirror"); bucket != "" {
		prefix, _ := cmd.Flags().GetString("mirror-prefix")
		m, err := mirror.Open(ctx, bucket, prefix, logger)
		if err != nil {
			s.close()
			return nil, err
		}
		s.mirror = m
	}

	s.reportPath, _ = cmd.Flags().GetString("report")
	return s, nil
}

func (s *sinks) close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
}

func (s *sinks) begin(ctx context.Context, runID string, at time.Time) {
	if s.store != nil {
		if err := s.store.BeginRun(ctx, runID, at); err != nil {
			logger.Error("history unavailable", "error", err)
			s.store.Close()
			s.store = nil
		}
	}
	if s.reportPath != "" {
		s.builder = report.NewBuilder(runID, s.outputDir, s.failedPath, at)
	}
}

func (s *sinks) outcome(ctx, runCtx context.Context, runID string, o types.Outcome) {
	if s.store != nil {
		if err := s.store.RecordOutcome(ctx, runID, o, time.Now()); err != nil {
			logger.Error("recording history", "doi", o.DOI, "error", err)
		}
	}
	if s.mirror != nil && o.Status == types.StatusSuccess && runCtx.Err() == nil {
		if _, _, err := s.mirror.Upload(runCtx, o.Path, o.DOI); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("mirror upload failed", "doi", o.DOI, "error", err)
		}
	}
	if s.builder != nil {
		s.builder.Add(o)
	}
}

func (s *sinks) finish(ctx context.Context, runID string, stats types.RunStats, at time.Time) {
	if s.store != nil {
		if err := s.store.FinishRun(ctx, runID, stats, at); err != nil {
			logger.Error("recording history", "error", err)
		}
	}
	if s.builder != nil {
		if err := report.Write(s.reportPath, s.builder.Finish(stats, at)); err != nil {
			logger.Error("writing report", "error", err)
		}
	}
}

// consume prints one progress line per outcome, feeds the sinks, and
// returns the final stats. It returns once the event channel closes.
// Bookkeeping writes use a context detached from runCtx so an interrupted
// run is still recorded.
func consume(runCtx context.Context, events <-chan types.Event, w io.Writer, s *sinks, runID string) types.RunStats {
	ctx := context.WithoutCancel(runCtx)
	s.begin(ctx, runID, time.Now())

	var stats types.RunStats
	for ev := range events {
		switch ev.Kind {
		case types.EventOutcome:
			printOutcome(w, *ev.Outcome)
			s.outcome(ctx, runCtx, runID, *ev.Outcome)
		case types.EventFinished:
			stats = *ev.Stats
			s.finish(ctx, runID, stats, time.Now())
			printSummary(w, stats)
		}
	}
	return stats
}

func printOutcome(w io.Writer, o types.Outcome) {
	switch o.Status {
	case types.StatusSuccess:
		fmt.Fprintf(w, "  fetched: %s via %s -> %s\n", o.DOI, o.Provider, filepath.Base(o.Path))
	case types.StatusSkipped:
		fmt.Fprintf(w, "  skipped: %s (already downloaded)\n", o.DOI)
	case types.StatusCancelled:
		fmt.Fprintf(w, "  cancelled: %s\n", o.DOI)
	default:
		fmt.Fprintf(w, "  failed: %s: %s\n", o.DOI, o.Reason)
	}
}

func printSummary(w io.Writer, s types.RunStats) {
	fmt.Fprintf(w, "\nDone: %d fetched, %d skipped, %d failed, %d cancelled\n",
		s.Success, s.Skipped, s.Failed, s.Cancelled)
	if len(s.PerProvider) == 0 {
		return
	}
	names := make([]string, 0, len(s.PerProvider))
	for name := range s.PerProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %d\n", name, s.PerProvider[name])
	}
}

// serveMetrics starts the metrics endpoint and returns its shutdown func.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
