// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate fans metadata lookups for one DOI out across providers
// and settles on a single record.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperfetch/internal/provider"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// DefaultWorkers bounds concurrent metadata calls for one DOI. It is kept
// below the provider count to limit simultaneous outbound connections.
const DefaultWorkers = types.DefaultMetadataWorkers

// Source is the subset of provider.Set the aggregator needs.
type Source interface {
	Metadata() []provider.Provider
	IsHighConfidence(name string) bool
}

// Result is the settled metadata for one DOI.
type Result struct {
	// Metadata is the accepted record, or types.Fallback when no provider
	// answered.
	Metadata types.Metadata

	// DirectURL is a content URL to try before the fallback walk: the
	// accepted record's PDFURL, else the first PDFURL any provider reported.
	DirectURL string

	// Owner names the provider that supplied DirectURL.
	Owner string
}

// Aggregator queries every metadata provider concurrently.
type Aggregator struct {
	source  Source
	workers int
	log     *slog.Logger
}

// New returns an Aggregator over source. workers <= 0 selects DefaultWorkers.
func New(source Source, workers int, log *slog.Logger) *Aggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{source: source, workers: workers, log: log.With("component", "aggregate")}
}

type answer struct {
	provider string
	meta     *types.Metadata
}

// Fetch settles the metadata for doi.
//
// Results are considered in completion order. The first non-nil record is
// accepted; if it came from a high-confidence provider and carries a
// title, Fetch returns without waiting for the calls still in flight. Their
// results are discarded. When ctx is cancelled, Fetch returns whatever it
// has accepted so far.
func (a *Aggregator) Fetch(ctx context.Context, doi string) Result {
	providers := a.source.Metadata()
	answers := make(chan answer, len(providers))

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	g.SetLimit(a.workers)

	go func() {
		for _, p := range providers {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					answers <- answer{provider: p.Name()}
					return nil
				}
				answers <- answer{provider: p.Name(), meta: a.query(ctx, p, doi)}
				return nil
			})
		}
		_ = g.Wait()
		close(answers)
	}()

	var (
		accepted  *types.Metadata
		directURL string
		owner     string
	)
	settle := func() Result {
		// Abandoned calls see a cancelled context and wind down; the
		// buffered channel keeps them from blocking.
		cancel()
		r := Result{Metadata: types.Fallback(doi)}
		if accepted != nil {
			r.Metadata = *accepted
		}
		if accepted != nil && accepted.PDFURL != "" {
			r.DirectURL, r.Owner = accepted.PDFURL, accepted.Source
		} else if directURL != "" {
			r.DirectURL, r.Owner = directURL, owner
		}
		return r
	}

	for {
		select {
		case <-parent.Done():
			return settle()
		case ans, ok := <-answers:
			if !ok {
				return settle()
			}
			if ans.meta == nil {
				continue
			}
			if directURL == "" && ans.meta.PDFURL != "" {
				directURL, owner = ans.meta.PDFURL, ans.provider
			}
			if accepted != nil {
				continue
			}
			accepted = ans.meta
			if accepted.Source == "" {
				accepted.Source = ans.provider
			}
			a.log.Debug("metadata accepted", "doi", doi, "provider", ans.provider)
			if a.source.IsHighConfidence(ans.provider) && accepted.HasTitle() {
				return settle()
			}
		}
	}
}

// query calls one provider, converting a panic into a nil result so a
// broken provider cannot take down the fan-out.
func (a *Aggregator) query(ctx context.Context, p provider.Provider, doi string) (meta *types.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("provider panicked", "provider", p.Name(), "doi", doi, "panic", fmt.Sprint(r))
			meta = nil
		}
	}()
	meta = p.FetchMetadata(ctx, doi)
	if meta != nil && meta.DOI == "" {
		meta.DOI = doi
	}
	return meta
}
