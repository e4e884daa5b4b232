// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// doajAPIBase is the DOAJ article search endpoint. Declared as a var so tests
// can substitute an httptest server.
var doajAPIBase = "https://doaj.org/api/search/articles/"

type doajResponse struct {
	Results []struct {
		BibJSON struct {
			Title  string `json:"title"`
			Year   string `json:"year"`
			Author []struct {
				Name string `json:"name"`
			} `json:"author"`
			Link []struct {
				Type        string `json:"type"`
				URL         string `json:"url"`
				ContentType string `json:"content_type"`
			} `json:"link"`
		} `json:"bibjson"`
	} `json:"results"`
}

// DOAJ searches the Directory of Open Access Journals.
type DOAJ struct {
	base
}

// NewDOAJ returns the DOAJ provider.
func NewDOAJ(opts Options) *DOAJ {
	return &DOAJ{base: newBase(NameDOAJ, doajAPIBase, opts)}
}

// FetchMetadata searches DOAJ for doi and returns the first article.
func (p *DOAJ) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	var dr doajResponse
	if err := p.getJSON(ctx, doajAPIBase+url.PathEscape("doi:"+doi), nil, &dr); err != nil {
		return p.miss(doi, err)
	}
	if len(dr.Results) == 0 {
		return p.miss(doi, nil)
	}

	bj := dr.Results[0].BibJSON
	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(bj.Title), Year: bj.Year, Source: NameDOAJ}
	for _, a := range bj.Author {
		if a.Name != "" {
			m.Authors = append(m.Authors, a.Name)
		}
	}
	// Prefer a full-text link declared as PDF; any full-text link may still
	// be a landing page the HTML fallback can resolve.
	for _, l := range bj.Link {
		if l.Type != "fulltext" || l.URL == "" {
			continue
		}
		if strings.EqualFold(l.ContentType, "pdf") {
			m.PDFURL = l.URL
			break
		}
		if m.PDFURL == "" {
			m.PDFURL = l.URL
		}
	}
	return m
}

// FetchContent downloads the article's full-text link.
func (p *DOAJ) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
