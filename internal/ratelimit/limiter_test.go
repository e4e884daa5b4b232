// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_FirstCallImmediate(t *testing.T) {
	l := New(time.Hour)

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAcquire_ConcurrentCallersSpaced(t *testing.T) {
	const (
		interval = 20 * time.Millisecond
		rounds   = 10
		callers  = 8
	)
	l := New(interval)

	var times []time.Time
	l.admitted = func(at time.Time) { times = append(times, at) } // called under the lock

	for r := 0; r < rounds; r++ {
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, l.Acquire(context.Background()))
			}()
		}
		wg.Wait()
	}

	require.Len(t, times, rounds*callers)
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, interval, "admission %d came %v after the previous one", i, gap)
	}
}

func TestAcquire_WaiterGivesUpWhileLocked(t *testing.T) {
	l := New(time.Hour)
	require.NoError(t, l.Acquire(context.Background()))

	// Holds the lock for the rest of the hour.
	go l.Acquire(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Acquire(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New(time.Hour)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx)
	assert.Error(t, err)
}

func TestAcquire_ZeroIntervalDisabled(t *testing.T) {
	l := New(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, time.Duration(0), l.Interval())
}
