// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Acquirer processes one DOI. *Pipeline is the production implementation.
type Acquirer interface {
	Acquire(ctx context.Context, doi string) types.Outcome
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// MaxConcurrency bounds the DOIs processed at once (default 10).
	MaxConcurrency int

	// FailedList collects failed and cancelled DOIs. Nil disables it.
	FailedList *FailedList

	// AppendFailed keeps the failed list's current contents instead of
	// truncating it when the run starts.
	AppendFailed bool

	Logger *slog.Logger
}

// Coordinator runs one batch of DOIs through an Acquirer on a bounded
// worker pool and reports each outcome on an event channel.
type Coordinator struct {
	acq    Acquirer
	cfg    CoordinatorConfig
	log    *slog.Logger
	runID  string
	stop   context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu    sync.Mutex
	stats types.RunStats
}

// NewCoordinator returns a Coordinator for a single run.
func NewCoordinator(acq Acquirer, cfg CoordinatorConfig) *Coordinator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = types.DefaultMaxConcurrency
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	runID := uuid.NewString()
	stop, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		acq:    acq,
		cfg:    cfg,
		log:    log.With("component", "coordinator", "run", runID),
		runID:  runID,
		stop:   stop,
		cancel: cancel,
		stats:  types.RunStats{PerProvider: make(map[string]int)},
	}
}

// RunID identifies this run in events, logs and history.
func (c *Coordinator) RunID() string { return c.runID }

// Cancel stops the run. Tasks not yet started finish as cancelled without
// touching any provider; running tasks stop at their next checkpoint.
// Calling Cancel more than once, or before Run, is allowed.
func (c *Coordinator) Cancel() {
	c.once.Do(c.cancel)
}

// Stats returns a snapshot of the run counters.
func (c *Coordinator) Stats() types.RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.PerProvider = maps.Clone(c.stats.PerProvider)
	return s
}

// Run processes dois and returns the event channel. The channel carries one
// outcome event per DOI in completion order, then a single finished event
// with the final stats, and is closed afterwards. It is buffered to hold
// every event, so workers never block on a slow consumer. The finished
// event is sent only after every worker has returned.
func (c *Coordinator) Run(ctx context.Context, dois []string) <-chan types.Event {
	events := make(chan types.Event, len(dois)+1)

	runCtx, cancelRun := context.WithCancel(ctx)
	if c.stop.Err() != nil {
		cancelRun()
	}
	stopWatch := context.AfterFunc(c.stop, cancelRun)

	if c.cfg.FailedList != nil && !c.cfg.AppendFailed {
		if err := c.cfg.FailedList.Truncate(); err != nil {
			c.log.Error("truncating failed list", "error", err)
		}
	}

	c.log.Info("run started", "dois", len(dois), "max_concurrency", c.cfg.MaxConcurrency)

	go func() {
		defer close(events)
		defer cancelRun()
		defer stopWatch()

		var g errgroup.Group
		g.SetLimit(c.cfg.MaxConcurrency)
		for _, doi := range dois {
			g.Go(func() error {
				out := c.acq.Acquire(runCtx, doi)
				c.record(out)
				events <- types.Event{Kind: types.EventOutcome, RunID: c.runID, Outcome: &out}
				return nil
			})
		}
		_ = g.Wait()

		stats := c.Stats()
		c.log.Info("run finished",
			"success", stats.Success, "skipped", stats.Skipped,
			"failed", stats.Failed, "cancelled", stats.Cancelled)
		events <- types.Event{Kind: types.EventFinished, RunID: c.runID, Stats: &stats}
	}()

	return events
}

func (c *Coordinator) record(out types.Outcome) {
	c.mu.Lock()
	switch out.Status {
	case types.StatusSuccess:
		c.stats.Success++
		c.stats.PerProvider[out.Provider]++
	case types.StatusSkipped:
		c.stats.Skipped++
	case types.StatusFailed:
		c.stats.Failed++
	case types.StatusCancelled:
		c.stats.Cancelled++
	}
	c.mu.Unlock()

	if out.Status != types.StatusFailed && out.Status != types.StatusCancelled {
		return
	}
	if c.cfg.FailedList == nil {
		return
	}
	if err := c.cfg.FailedList.Append(out.DOI); err != nil {
		c.log.Error("recording failed DOI", "doi", out.DOI, "error", err)
	}
}
