// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// HighConfidence lists the providers whose metadata is authoritative enough
// to stop the metadata fan-out early.
var HighConfidence = []string{NameCrossref, NameUnpaywall}

// healthTimeout bounds a single health probe.
const healthTimeout = 10 * time.Second

// Set is the ordered provider registry used by one run. The metadata and
// fallback lists share provider instances, so each provider has exactly one
// rate limiter no matter which list a call comes from.
type Set struct {
	metadata []Provider
	fallback []Provider
	byName   map[string]Provider
	high     map[string]bool
}

// New builds a Set from explicit lists. Names in highConfidence may
// short-circuit metadata aggregation.
func New(metadata, fallback []Provider, highConfidence ...string) *Set {
	s := &Set{
		metadata: metadata,
		fallback: fallback,
		byName:   make(map[string]Provider),
		high:     make(map[string]bool),
	}
	for _, p := range append(append([]Provider{}, metadata...), fallback...) {
		if _, ok := s.byName[p.Name()]; !ok {
			s.byName[p.Name()] = p
		}
	}
	for _, n := range highConfidence {
		s.high[n] = true
	}
	return s
}

// NewSet builds the default provider set for cfg.
//
// Metadata order: Crossref, Unpaywall, CORE, PMC, DOAJ, Zenodo, OSF, arXiv,
// OpenAlex, SemanticScholar. Fallback order: CORE, Unpaywall, PMC, DOAJ,
// Zenodo, OSF, OpenAlex, SemanticScholar, arXiv, DOIResolver.
func NewSet(cfg types.FetchConfig, client *http.Client, log *slog.Logger) *Set {
	opts := OptionsFromConfig(cfg, client, log)

	var (
		crossref = NewCrossref(opts)
		unpay    = NewUnpaywall(opts)
		core     = NewCORE(opts)
		pmc      = NewPMC(opts)
		doaj     = NewDOAJ(opts)
		zenodo   = NewZenodo(opts)
		osf      = NewOSF(opts)
		arxiv    = NewArxiv(opts)
		openalex = NewOpenAlex(opts)
		semantic = NewSemanticScholar(opts)
		resolver = NewDOIResolver(opts)
	)

	return New(
		[]Provider{crossref, unpay, core, pmc, doaj, zenodo, osf, arxiv, openalex, semantic},
		[]Provider{core, unpay, pmc, doaj, zenodo, osf, openalex, semantic, arxiv, resolver},
		HighConfidence...,
	)
}

// Metadata returns the providers queried during metadata aggregation.
func (s *Set) Metadata() []Provider { return s.metadata }

// Fallback returns the providers walked in order for content.
func (s *Set) Fallback() []Provider { return s.fallback }

// Lookup returns the provider registered under name.
func (s *Set) Lookup(name string) (Provider, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// IsHighConfidence reports whether name may short-circuit aggregation.
func (s *Set) IsHighConfidence(name string) bool {
	return s.high[name]
}

// Names returns every distinct provider name, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Health is the result of probing one provider.
type Health struct {
	Provider string        `json:"provider" yaml:"provider"`
	OK       bool          `json:"ok" yaml:"ok"`
	Message  string        `json:"message" yaml:"message"`
	Latency  time.Duration `json:"latency" yaml:"latency"`
}

// HealthCheck probes every distinct provider concurrently and returns the
// results sorted by provider name.
func (s *Set) HealthCheck(ctx context.Context) []Health {
	names := s.Names()
	results := make([]Health, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		p := s.byName[name]
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			start := time.Now()
			ok, msg := p.HealthCheck(pctx)
			results[i] = Health{Provider: name, OK: ok, Message: msg, Latency: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
