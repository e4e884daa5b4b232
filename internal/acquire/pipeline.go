// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns DOIs into validated PDFs on disk. A Pipeline handles
// one DOI; a Coordinator runs a batch of them on a bounded worker pool.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/pdiddy/paperfetch/internal/aggregate"
	"github.com/pdiddy/paperfetch/internal/naming"
	"github.com/pdiddy/paperfetch/internal/provider"
	"github.com/pdiddy/paperfetch/internal/validate"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// ReasonNoSource is the failure reason when every provider was exhausted.
const ReasonNoSource = "no valid source found"

// defaultDirectOwner handles a direct URL whose owner is not registered.
const defaultDirectOwner = provider.NameUnpaywall

// Recorder observes pipeline activity. A nil Recorder is allowed.
type Recorder interface {
	// Attempt records one content fetch through a provider.
	Attempt(provider string, ok bool, elapsed time.Duration)
	// Outcome records the terminal outcome for one DOI.
	Outcome(o types.Outcome)
	// InFlight adjusts the number of DOIs currently being processed.
	InFlight(delta int)
}

type noopRecorder struct{}

func (noopRecorder) Attempt(string, bool, time.Duration) {}
func (noopRecorder) Outcome(types.Outcome)                {}
func (noopRecorder) InFlight(int)                         {}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// OutputDir receives the PDFs.
	OutputDir string

	// MetadataWorkers bounds the metadata fan-out for one DOI.
	MetadataWorkers int

	Recorder Recorder
	Logger   *slog.Logger
}

// Pipeline runs the per-DOI state machine: metadata, skip check, direct
// attempt, fallback walk. Cancellation is observed at entry, after
// metadata, before the direct attempt, and before each fallback provider.
type Pipeline struct {
	set       *provider.Set
	agg       *aggregate.Aggregator
	outputDir string
	rec       Recorder
	log       *slog.Logger
}

// NewPipeline returns a Pipeline over the providers in set.
func NewPipeline(set *provider.Set, cfg PipelineConfig) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Pipeline{
		set:       set,
		agg:       aggregate.New(set, cfg.MetadataWorkers, log),
		outputDir: cfg.OutputDir,
		rec:       rec,
		log:       log.With("component", "pipeline"),
	}
}

// Acquire processes one DOI and returns its outcome. It never panics: a bug
// below it turns into a failed outcome for this DOI only.
func (p *Pipeline) Acquire(ctx context.Context, doi string) (out types.Outcome) {
	start := time.Now()
	p.rec.InFlight(1)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline panic", "doi", doi, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			out = types.Outcome{DOI: doi, Status: types.StatusFailed, Reason: fmt.Sprintf("internal error: %v", r)}
		}
		out.Duration = time.Since(start)
		p.rec.InFlight(-1)
		p.rec.Outcome(out)
		p.logOutcome(out)
	}()

	if ctx.Err() != nil {
		return cancelled(doi)
	}

	res := p.agg.Fetch(ctx, doi)
	if ctx.Err() != nil {
		return cancelled(doi)
	}

	meta := res.Metadata
	path := filepath.Join(p.outputDir, naming.Name(meta))
	citation := naming.Citation(meta)

	if info, err := os.Stat(path); err == nil && info.Size() > validate.MinPDFSize {
		return types.Outcome{DOI: doi, Status: types.StatusSkipped, Path: path, Citation: citation}
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return types.Outcome{DOI: doi, Status: types.StatusFailed, Citation: citation,
			Reason: fmt.Sprintf("creating output directory: %v", err)}
	}

	success := func(name string) types.Outcome {
		return types.Outcome{DOI: doi, Status: types.StatusSuccess, Provider: name, Path: path, Citation: citation}
	}

	if res.DirectURL != "" {
		if ctx.Err() != nil {
			return cancelled(doi)
		}
		if prov, ok := p.directOwner(res.Owner); ok {
			if p.attempt(prov, func() bool { return prov.FetchDirect(ctx, res.DirectURL, path) }) {
				return success(prov.Name())
			}
		}
	}

	for _, prov := range p.set.Fallback() {
		if ctx.Err() != nil {
			return cancelled(doi)
		}
		if p.attempt(prov, func() bool { return prov.FetchContent(ctx, doi, &meta, path) }) {
			return success(prov.Name())
		}
	}

	if ctx.Err() != nil {
		return cancelled(doi)
	}
	return types.Outcome{DOI: doi, Status: types.StatusFailed, Reason: ReasonNoSource, Citation: citation}
}

func (p *Pipeline) directOwner(name string) (provider.Provider, bool) {
	if prov, ok := p.set.Lookup(name); ok {
		return prov, true
	}
	return p.set.Lookup(defaultDirectOwner)
}

func (p *Pipeline) attempt(prov provider.Provider, fetch func() bool) bool {
	start := time.Now()
	ok := fetch()
	p.rec.Attempt(prov.Name(), ok, time.Since(start))
	return ok
}

func (p *Pipeline) logOutcome(o types.Outcome) {
	attrs := []any{"doi", o.DOI, "status", string(o.Status), "duration", o.Duration.Round(time.Millisecond)}
	switch o.Status {
	case types.StatusSuccess:
		p.log.Info("downloaded", append(attrs, "provider", o.Provider, "path", o.Path)...)
	case types.StatusSkipped:
		p.log.Info("already downloaded", append(attrs, "path", o.Path)...)
	case types.StatusFailed:
		p.log.Warn("download failed", append(attrs, "reason", o.Reason)...)
	default:
		p.log.Info("cancelled", attrs...)
	}
}

func cancelled(doi string) types.Outcome {
	return types.Outcome{DOI: doi, Status: types.StatusCancelled}
}
