// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/pkg/types"
)

func buildSample() Summary {
	start := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	b := NewBuilder("run-42", "papers", "papers/failed_dois.txt", start)
	b.Add(types.Outcome{DOI: "10.2/b", Status: types.StatusFailed, Reason: "no valid source found", Duration: 3 * time.Second})
	b.Add(types.Outcome{DOI: "10.1/a", Status: types.StatusSuccess, Provider: "Unpaywall",
		Path: "papers/Smith, 2020 - Title - 10.1_a.pdf", Citation: "Smith, 2020", Duration: 1234567 * time.Microsecond})
	return b.Finish(types.RunStats{Success: 1, Failed: 1, PerProvider: map[string]int{"Unpaywall": 1}}, start.Add(90*time.Second))
}

func TestFinish(t *testing.T) {
	s := buildSample()

	assert.Equal(t, "1m30s", s.Elapsed)
	require.Len(t, s.Outcomes, 2)
	assert.Equal(t, "10.1/a", s.Outcomes[0].DOI, "outcomes sorted by DOI")
	assert.Equal(t, "Smith, 2020 - Title - 10.1_a.pdf", s.Outcomes[0].File)
	assert.Equal(t, "1.235s", s.Outcomes[0].Duration)
	assert.Equal(t, "", s.Outcomes[1].File)
}

func TestWriteRead_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	want := buildSample()
	require.NoError(t, Write(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-42")
	assert.Contains(t, string(data), "reason: no valid source found")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Outcomes, got.Outcomes)
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
}

func TestWriteRead_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	want := buildSample()
	require.NoError(t, Write(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-42"`)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want.Outcomes, got.Outcomes)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
