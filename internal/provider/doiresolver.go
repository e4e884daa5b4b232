// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// doiResolverBase is the DOI proxy. Declared as a var so tests can
// substitute an httptest server.
var doiResolverBase = "https://doi.org/"

// DOIResolver follows the DOI proxy to the publisher and asks for a PDF by
// content negotiation. Publishers that answer with a landing page are
// handled by the PDF-link fallback. It has no metadata.
type DOIResolver struct {
	base
}

// NewDOIResolver returns the DOI resolver provider.
func NewDOIResolver(opts Options) *DOIResolver {
	return &DOIResolver{base: newBase(NameDOIResolver, doiResolverBase, opts)}
}

// FetchMetadata always returns nil.
func (p *DOIResolver) FetchMetadata(context.Context, string) *types.Metadata {
	return nil
}

// FetchContent resolves doi with Accept: application/pdf.
func (p *DOIResolver) FetchContent(ctx context.Context, doi string, _ *types.Metadata, path string) bool {
	return p.fetchAndSave(ctx, doiResolverBase+doi, path, http.Header{"Accept": {"application/pdf"}})
}
