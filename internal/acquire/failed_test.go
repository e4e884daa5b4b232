// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedList_ConcurrentAppend(t *testing.T) {
	f := NewFailedList(filepath.Join(t.TempDir(), "nested"), "failed.txt")

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Append(fmt.Sprintf("10.1000/%d", i)))
		}()
	}
	wg.Wait()

	got, err := f.Read()
	require.NoError(t, err)
	assert.Len(t, got, writers)

	want := make([]string, writers)
	for i := range want {
		want[i] = fmt.Sprintf("10.1000/%d", i)
	}
	assert.ElementsMatch(t, want, got)
}

func TestFailedList_MissingIsEmpty(t *testing.T) {
	got, err := NewFailedList(t.TempDir(), "absent.txt").Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFailedList_Truncate(t *testing.T) {
	f := NewFailedList(t.TempDir(), "failed.txt")
	require.NoError(t, f.Append("10.1000/a"))
	require.NoError(t, f.Truncate())

	got, err := f.Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}
