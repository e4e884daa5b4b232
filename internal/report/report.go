// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes a summary of one batch run. The format follows the
// file extension: .json writes JSON, anything else writes YAML.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Summary is the document written for a run.
type Summary struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Elapsed    string         `json:"elapsed" yaml:"elapsed"`
	OutputDir  string         `json:"output_dir" yaml:"output_dir"`
	FailedList string         `json:"failed_list,omitempty" yaml:"failed_list,omitempty"`
	Stats      types.RunStats `json:"stats" yaml:"stats"`
	Outcomes   []Row          `json:"outcomes" yaml:"outcomes"`
}

// Row is one outcome with a human-readable duration.
type Row struct {
	DOI      string `json:"doi" yaml:"doi"`
	Status   string `json:"status" yaml:"status"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Citation string `json:"citation,omitempty" yaml:"citation,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration string `json:"duration" yaml:"duration"`
}

// Builder collects outcomes as they arrive. It is not safe for concurrent
// use; the event consumer owns it.
type Builder struct {
	s Summary
}

// NewBuilder starts a summary for runID.
func NewBuilder(runID, outputDir, failedList string, started time.Time) *Builder {
	return &Builder{s: Summary{
		RunID:      runID,
		StartedAt:  started.UTC(),
		OutputDir:  outputDir,
		FailedList: failedList,
	}}
}

// Add records one outcome.
func (b *Builder) Add(o types.Outcome) {
	row := Row{
		DOI:      o.DOI,
		Status:   string(o.Status),
		Provider: o.Provider,
		Citation: o.Citation,
		Reason:   o.Reason,
		Duration: o.Duration.Round(time.Millisecond).String(),
	}
	if o.Path != "" {
		row.File = filepath.Base(o.Path)
	}
	b.s.Outcomes = append(b.s.Outcomes, row)
}

// Finish closes the summary with the final stats. Outcomes are sorted by
// DOI so reports of the same batch diff cleanly.
func (b *Builder) Finish(stats types.RunStats, finished time.Time) Summary {
	b.s.Stats = stats
	b.s.FinishedAt = finished.UTC()
	b.s.Elapsed = finished.Sub(b.s.StartedAt).Round(time.Millisecond).String()
	sort.SliceStable(b.s.Outcomes, func(i, j int) bool {
		return b.s.Outcomes[i].DOI < b.s.Outcomes[j].DOI
	})
	return b.s
}

// Write stores s at path, creating parent directories.
func Write(path string, s Summary) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Read loads a summary written by Write.
func Read(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading report: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return s, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return s, nil
}
