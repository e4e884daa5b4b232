// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit spaces requests to a single provider.
//
// Each provider owns one Limiter. A global limiter would slow providers with
// generous usage terms down to the strictest one.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a minimum-interval gate safe for concurrent use. Acquire blocks
// until at least Interval has elapsed since the previous caller was admitted
// on the same instance. Waiters are not queued fairly.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter

	// lock is a one-slot semaphore held for the whole of Acquire, so reading
	// last, sleeping and recording the new admission form one critical
	// section. A channel lets waiters give up when their ctx ends.
	lock chan struct{}
	last time.Time

	// admitted, when set, observes each admission time under the lock.
	admitted func(time.Time)
}

// New returns a Limiter that admits one caller per interval. A non-positive
// interval disables limiting.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
		lock:     make(chan struct{}, 1),
	}
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the caller may issue its request. It only fails when
// ctx is done before the slot arrives.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}

	select {
	case l.lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rate limiter: %w", ctx.Err())
	}
	defer func() { <-l.lock }()

	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	// The token bucket spaces reservations, not wake-ups; top up against
	// the real admission time of the previous caller.
	if !l.last.IsZero() {
		if short := l.interval - time.Since(l.last); short > 0 {
			timer := time.NewTimer(short)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return fmt.Errorf("rate limiter: %w", ctx.Err())
			}
		}
	}

	l.last = time.Now()
	if l.admitted != nil {
		l.admitted(l.last)
	}
	return nil
}
