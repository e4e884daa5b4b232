// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"sync"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// metaCache remembers successful metadata lookups per DOI for the lifetime
// of a Set. Misses are not cached so a later run of the same Set can retry.
type metaCache struct {
	mu sync.Mutex
	m  map[string]types.Metadata
}

func newMetaCache() *metaCache {
	return &metaCache{m: make(map[string]types.Metadata)}
}

func (c *metaCache) get(doi string) (*types.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.m[doi]
	if !ok {
		return nil, false
	}
	return &m, true
}

func (c *metaCache) put(doi string, m *types.Metadata) {
	if m == nil {
		return
	}
	c.mu.Lock()
	c.m[doi] = *m
	c.mu.Unlock()
}
