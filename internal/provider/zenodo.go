// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// zenodoAPIBase is the Zenodo records endpoint. Declared as a var so tests
// can substitute an httptest server.
var zenodoAPIBase = "https://zenodo.org/api/records"

type zenodoResponse struct {
	Hits struct {
		Hits []zenodoRecord `json:"hits"`
	} `json:"hits"`
}

type zenodoRecord struct {
	Metadata struct {
		Title           string `json:"title"`
		PublicationDate string `json:"publication_date"`
		Creators        []struct {
			Name string `json:"name"`
		} `json:"creators"`
	} `json:"metadata"`
	Files []struct {
		Key   string `json:"key"`
		Type  string `json:"type"`
		Links struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"files"`
}

// Zenodo searches Zenodo records by DOI.
type Zenodo struct {
	base
}

// NewZenodo returns the Zenodo provider.
func NewZenodo(opts Options) *Zenodo {
	return &Zenodo{base: newBase(NameZenodo, zenodoAPIBase, opts)}
}

// FetchMetadata returns the first record matching doi.
func (p *Zenodo) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	q := url.Values{"q": {`doi:"` + doi + `"`}}
	var zr zenodoResponse
	if err := p.getJSON(ctx, zenodoAPIBase+"?"+q.Encode(), nil, &zr); err != nil {
		return p.miss(doi, err)
	}
	if len(zr.Hits.Hits) == 0 {
		return p.miss(doi, nil)
	}

	rec := zr.Hits.Hits[0]
	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(rec.Metadata.Title), Source: NameZenodo}
	if len(rec.Metadata.PublicationDate) >= 4 {
		m.Year = rec.Metadata.PublicationDate[:4]
	}
	for _, c := range rec.Metadata.Creators {
		if c.Name != "" {
			m.Authors = append(m.Authors, c.Name)
		}
	}
	for _, f := range rec.Files {
		if f.Links.Self == "" {
			continue
		}
		if f.Type == "pdf" || strings.HasSuffix(strings.ToLower(f.Key), ".pdf") {
			m.PDFURL = f.Links.Self
			break
		}
	}
	return m
}

// FetchContent downloads the record's first PDF file.
func (p *Zenodo) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
