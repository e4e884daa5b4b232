// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// osfAPIBase is the OSF search endpoint. Declared as a var so tests can
// substitute an httptest server.
var osfAPIBase = "https://api.osf.io/v2/search/"

type osfResponse struct {
	Data []struct {
		Attributes struct {
			Title         string `json:"title"`
			DatePublished string `json:"date_published"`
		} `json:"attributes"`
		Links struct {
			Download string `json:"download"`
		} `json:"links"`
	} `json:"data"`
}

// OSF searches the Open Science Framework preprint index.
type OSF struct {
	base
}

// NewOSF returns the OSF provider.
func NewOSF(opts Options) *OSF {
	return &OSF{base: newBase(NameOSF, osfAPIBase, opts)}
}

// FetchMetadata searches OSF for doi and returns the first hit.
func (p *OSF) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	var or osfResponse
	if err := p.getJSON(ctx, osfAPIBase+"?"+url.Values{"q": {doi}}.Encode(), nil, &or); err != nil {
		return p.miss(doi, err)
	}
	if len(or.Data) == 0 {
		return p.miss(doi, nil)
	}

	d := or.Data[0]
	m := &types.Metadata{
		DOI:    doi,
		Title:  strings.TrimSpace(d.Attributes.Title),
		PDFURL: d.Links.Download,
		Source: NameOSF,
	}
	if len(d.Attributes.DatePublished) >= 4 {
		m.Year = d.Attributes.DatePublished[:4]
	}
	return m
}

// FetchContent downloads the preprint's primary file.
func (p *OSF) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
