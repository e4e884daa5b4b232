// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/pkg/types"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", DefaultFile))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginRun(ctx, "run-1", start))
	require.NoError(t, s.RecordOutcome(ctx, "run-1", types.Outcome{
		DOI: "10.1/a", Status: types.StatusSuccess, Provider: "arXiv",
		Path: "/out/a.pdf", Citation: "Smith, 2020", Duration: 1500 * time.Millisecond,
	}, start.Add(time.Second)))
	require.NoError(t, s.RecordOutcome(ctx, "run-1", types.Outcome{
		DOI: "10.1/b", Status: types.StatusFailed, Reason: "no valid source found",
	}, start.Add(2*time.Second)))
	require.NoError(t, s.FinishRun(ctx, "run-1", types.RunStats{Success: 1, Failed: 1}, start.Add(3*time.Second)))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "run-1", r.ID)
	assert.True(t, r.StartedAt.Equal(start))
	assert.True(t, r.FinishedAt.Equal(start.Add(3*time.Second)))
	assert.Equal(t, 1, r.Stats.Success)
	assert.Equal(t, 1, r.Stats.Failed)
	assert.Equal(t, map[string]int{"arXiv": 1}, r.Stats.PerProvider)

	entries, err := s.Outcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "10.1/a", entries[0].DOI)
	assert.Equal(t, types.StatusSuccess, entries[0].Status)
	assert.Equal(t, 1500*time.Millisecond, entries[0].Duration)
	assert.Equal(t, "Smith, 2020", entries[0].Citation)
	assert.Equal(t, "no valid source found", entries[1].Reason)
}

func TestHistory_AcrossRuns(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginRun(ctx, "r1", t0))
	require.NoError(t, s.RecordOutcome(ctx, "r1", types.Outcome{DOI: "10.1/a", Status: types.StatusFailed}, t0))
	require.NoError(t, s.BeginRun(ctx, "r2", t0.Add(time.Hour)))
	require.NoError(t, s.RecordOutcome(ctx, "r2", types.Outcome{DOI: "10.1/a", Status: types.StatusSuccess, Provider: "CORE"}, t0.Add(time.Hour)))
	require.NoError(t, s.RecordOutcome(ctx, "r2", types.Outcome{DOI: "10.1/z", Status: types.StatusSkipped}, t0.Add(time.Hour)))

	hist, err := s.History(ctx, "10.1/a")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "r1", hist[0].RunID)
	assert.Equal(t, types.StatusFailed, hist[0].Status)
	assert.Equal(t, "r2", hist[1].RunID)
	assert.Equal(t, "CORE", hist[1].Provider)

	runs, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())
}

func TestFinishRun_Unknown(t *testing.T) {
	s := openTest(t)
	err := s.FinishRun(context.Background(), "missing", types.RunStats{}, time.Now())
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestRecordOutcome_RequiresRun(t *testing.T) {
	s := openTest(t)
	err := s.RecordOutcome(context.Background(), "missing", types.Outcome{DOI: "10.1/a", Status: types.StatusFailed}, time.Now())
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultFile)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.BeginRun(ctx, "r1", time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
