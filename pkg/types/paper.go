// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Metadata is what one provider knows about a work. The aggregator selects
// a single Metadata per identifier; when every provider fails it falls back
// to a value carrying only the DOI.
type Metadata struct {
	// DOI is the normalized identifier the metadata was fetched for.
	DOI string `json:"doi" yaml:"doi"`

	// Title is the work title, empty when unknown.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Year is the publication year as reported by the provider.
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PDFURL is a direct content URL when the provider could supply one
	// without an extra round trip.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Source names the provider that produced this record.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Extra carries provider-specific identifiers (e.g. "pmcid").
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Fallback returns the minimal metadata used when no provider answered.
func Fallback(doi string) Metadata {
	return Metadata{DOI: doi}
}

// HasTitle reports whether the record carries a usable title.
func (m Metadata) HasTitle() bool {
	t := strings.TrimSpace(m.Title)
	return t != "" && !strings.EqualFold(t, "unknown title")
}

// Status is the terminal state of one identifier.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome is created exactly once per identifier per run and never mutated.
// A success outcome guarantees Path existed and passed PDF validation when
// the outcome was created.
type Outcome struct {
	DOI      string        `json:"doi" yaml:"doi"`
	Status   Status        `json:"status" yaml:"status"`
	Provider string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Path     string        `json:"path,omitempty" yaml:"path,omitempty"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Citation string        `json:"citation,omitempty" yaml:"citation,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunStats is a snapshot of the counters for one batch run.
type RunStats struct {
	Success     int            `json:"success" yaml:"success"`
	Skipped     int            `json:"skipped" yaml:"skipped"`
	Failed      int            `json:"failed" yaml:"failed"`
	Cancelled   int            `json:"cancelled" yaml:"cancelled"`
	PerProvider map[string]int `json:"per_provider" yaml:"per_provider"`
}

// Total returns the number of identifiers accounted for.
func (s RunStats) Total() int {
	return s.Success + s.Skipped + s.Failed + s.Cancelled
}

// HasFailures reports whether any identifier failed or was cancelled.
func (s RunStats) HasFailures() bool {
	return s.Failed > 0 || s.Cancelled > 0
}

// EventKind distinguishes per-identifier events from the terminal event.
type EventKind string

const (
	EventOutcome  EventKind = "outcome"
	EventFinished EventKind = "finished"
)

// Event is one message on a run's event channel. Outcome events carry
// Outcome; the single finished event carries the final Stats.
type Event struct {
	Kind    EventKind
	RunID   string
	Outcome *Outcome
	Stats   *RunStats
}
