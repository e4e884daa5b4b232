// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// unpaywallAPIBase is the Unpaywall v2 endpoint. Declared as a var so tests
// can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2/"

type unpaywallResponse struct {
	Title          string             `json:"title"`
	Year           int                `json:"year"`
	Authors        []unpaywallAuthor  `json:"z_authors"`
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

type unpaywallAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
	URL       string `json:"url"`
}

// Unpaywall resolves DOIs to open-access copies. It requires a contact
// email and is disabled without one.
type Unpaywall struct {
	base
}

// NewUnpaywall returns the Unpaywall provider.
func NewUnpaywall(opts Options) *Unpaywall {
	return &Unpaywall{base: newBase(NameUnpaywall, unpaywallAPIBase, opts)}
}

// FetchMetadata queries Unpaywall for doi.
func (p *Unpaywall) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	if p.email == "" {
		return nil
	}

	var ur unpaywallResponse
	apiURL := unpaywallAPIBase + doi + "?email=" + url.QueryEscape(p.email)
	if err := p.getJSON(ctx, apiURL, nil, &ur); err != nil {
		return p.miss(doi, err)
	}

	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(ur.Title), Source: NameUnpaywall}
	if ur.Year > 0 {
		m.Year = strconv.Itoa(ur.Year)
	}
	for _, a := range ur.Authors {
		if name := strings.TrimSpace(a.Given + " " + a.Family); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	if ur.BestOALocation != nil {
		m.PDFURL = ur.BestOALocation.URLForPDF
	}
	return m
}

// FetchContent downloads the best open-access PDF location.
func (p *Unpaywall) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	if p.email == "" {
		return false
	}
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
