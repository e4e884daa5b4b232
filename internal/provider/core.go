// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// coreAPIBase is the CORE v3 works endpoint. Declared as a var so tests can
// substitute an httptest server.
var coreAPIBase = "https://api.core.ac.uk/v3/works/"

type coreWork struct {
	Title         string       `json:"title"`
	YearPublished int          `json:"yearPublished"`
	Authors       []coreAuthor `json:"authors"`
	FullTextLink  string       `json:"fullTextLink"`
	DownloadURL   string       `json:"downloadUrl"`
}

type coreAuthor struct {
	Name string `json:"name"`
}

// CORE searches the aggregated repository index. It needs an API key.
type CORE struct {
	base
	apiKey string
}

// NewCORE returns the CORE provider.
func NewCORE(opts Options) *CORE {
	return &CORE{base: newBase(NameCORE, coreAPIBase, opts), apiKey: opts.CoreAPIKey}
}

func (p *CORE) header() http.Header {
	return http.Header{"Authorization": {"Bearer " + p.apiKey}}
}

// FetchMetadata queries CORE for doi.
func (p *CORE) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	if p.apiKey == "" {
		return nil
	}

	var w coreWork
	if err := p.getJSON(ctx, coreAPIBase+doi, p.header(), &w); err != nil {
		return p.miss(doi, err)
	}

	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(w.Title), Source: NameCORE}
	if w.YearPublished > 0 {
		m.Year = strconv.Itoa(w.YearPublished)
	}
	for _, a := range w.Authors {
		if a.Name != "" {
			m.Authors = append(m.Authors, a.Name)
		}
	}
	for _, link := range []string{w.DownloadURL, w.FullTextLink} {
		if strings.Contains(strings.ToLower(link), "pdf") {
			m.PDFURL = link
			break
		}
	}
	return m
}

// FetchContent downloads CORE's full-text link.
func (p *CORE) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	if p.apiKey == "" {
		return false
	}
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
