// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the provider clients.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// RetryBaseDelay is multiplied by the attempt number between retries
// (2 s, 4 s, ...). Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxAttempts = 3

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Transient reports whether the status is worth retrying: 429 and 5xx.
// Every other 4xx is permanent for this URL.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CheckStatus returns a *StatusError unless resp is a 200.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()}
}

// IsTransient classifies err as a transient transport failure: timeouts,
// connection resets and refusals, bodies cut short, and retryable statuses.
// Context cancellation by the caller is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// Retry calls fn up to maxAttempts times (default 3). It retries only when
// fn returns an error IsTransient accepts, sleeping attempt*base between
// attempts (base defaults to RetryBaseDelay). A permanent error or a nil
// error ends the loop. If ctx is cancelled during a backoff wait, Retry
// returns ctx.Err().
func Retry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if base <= 0 {
		base = RetryBaseDelay
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * base):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, err)
}

// Drain discards the rest of a response body and closes it so the
// underlying connection can be reused.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
