// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/pdiddy/paperfetch/internal/validate"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// stubProvider serves canned metadata and writes a fixed PDF for the DOIs
// it is configured to have.
type stubProvider struct {
	name    string
	meta    *types.Metadata
	pdf     []byte
	has     map[string]bool
	direct  bool
	panics  bool
	onFetch func()

	mu           sync.Mutex
	contentCalls int
	directCalls  int
	metaCalls    atomic.Int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchMetadata(_ context.Context, doi string) *types.Metadata {
	s.metaCalls.Add(1)
	if s.meta == nil {
		return nil
	}
	m := *s.meta
	m.DOI = doi
	m.Source = s.name
	return &m
}

func (s *stubProvider) FetchContent(_ context.Context, doi string, _ *types.Metadata, path string) bool {
	s.mu.Lock()
	s.contentCalls++
	s.mu.Unlock()
	if s.onFetch != nil {
		s.onFetch()
	}
	if s.panics {
		panic("provider bug")
	}
	if !s.has[doi] {
		return false
	}
	return s.write(path)
}

func (s *stubProvider) FetchDirect(_ context.Context, _ string, path string) bool {
	s.mu.Lock()
	s.directCalls++
	s.mu.Unlock()
	if !s.direct {
		return false
	}
	return s.write(path)
}

func (s *stubProvider) HealthCheck(context.Context) (bool, string) { return true, "stub" }

func (s *stubProvider) write(path string) bool {
	_, err := validate.Commit(bytes.NewReader(s.pdf), "application/pdf", int64(len(s.pdf)), path, nil)
	return err == nil
}

func (s *stubProvider) calls() (content, direct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentCalls, s.directCalls
}
