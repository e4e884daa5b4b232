// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// semanticAPIBase is the Semantic Scholar graph paper endpoint. Declared as
// a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/"

const semanticFields = "title,year,authors,openAccessPdf"

type semanticPaper struct {
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// SemanticScholar queries the Semantic Scholar graph API.
type SemanticScholar struct {
	base
}

// NewSemanticScholar returns the Semantic Scholar provider.
func NewSemanticScholar(opts Options) *SemanticScholar {
	return &SemanticScholar{base: newBase(NameSemanticScholar, semanticAPIBase, opts)}
}

// FetchMetadata looks doi up by its DOI: external id.
func (p *SemanticScholar) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	var sp semanticPaper
	if err := p.getJSON(ctx, semanticAPIBase+"DOI:"+doi+"?fields="+semanticFields, nil, &sp); err != nil {
		return p.miss(doi, err)
	}

	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(sp.Title), Source: NameSemanticScholar}
	if sp.Year > 0 {
		m.Year = strconv.Itoa(sp.Year)
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			m.Authors = append(m.Authors, a.Name)
		}
	}
	if sp.OpenAccessPDF != nil {
		m.PDFURL = sp.OpenAccessPDF.URL
	}
	return m
}

// FetchContent downloads the open-access PDF Semantic Scholar lists.
func (p *SemanticScholar) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
