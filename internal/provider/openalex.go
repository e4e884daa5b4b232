// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	Title           string            `json:"title"`
	DisplayName     string            `json:"display_name"`
	PublicationYear int               `json:"publication_year"`
	Authorships     []openAlexAuthor  `json:"authorships"`
	OpenAccess      openAlexOA        `json:"open_access"`
	BestOALocation  *openAlexLocation `json:"best_oa_location"`
}

type openAlexAuthor struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexOA struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// openAlexLocation represents an open-access location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// OpenAlex queries the OpenAlex scholarly graph.
type OpenAlex struct {
	base
	cache *metaCache
}

// NewOpenAlex returns the OpenAlex provider.
func NewOpenAlex(opts Options) *OpenAlex {
	return &OpenAlex{base: newBase(NameOpenAlex, openAlexAPIBase, opts), cache: newMetaCache()}
}

// FetchMetadata looks doi up in OpenAlex, using the per-DOI cache first.
// The PDF URL is the best OA location's pdf_url, else open_access.oa_url.
func (p *OpenAlex) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	if m, ok := p.cache.get(doi); ok {
		return m
	}

	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if p.email != "" {
		apiURL += "?" + url.Values{"mailto": {p.email}}.Encode()
	}

	var oa openAlexResponse
	if err := p.getJSON(ctx, apiURL, nil, &oa); err != nil {
		return p.miss(doi, err)
	}

	title := oa.Title
	if title == "" {
		title = oa.DisplayName
	}
	m := &types.Metadata{DOI: doi, Title: strings.TrimSpace(title), Source: NameOpenAlex}
	if oa.PublicationYear > 0 {
		m.Year = strconv.Itoa(oa.PublicationYear)
	}
	for _, a := range oa.Authorships {
		if a.Author.DisplayName != "" {
			m.Authors = append(m.Authors, a.Author.DisplayName)
		}
	}
	if oa.BestOALocation != nil && oa.BestOALocation.PDFURL != "" {
		m.PDFURL = oa.BestOALocation.PDFURL
	} else {
		m.PDFURL = oa.OpenAccess.OAURL
	}

	p.cache.put(doi, m)
	return m
}

// FetchContent downloads the open-access copy OpenAlex points at.
func (p *OpenAlex) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	return p.fetchVia(ctx, doi, meta, path, p.FetchMetadata)
}
