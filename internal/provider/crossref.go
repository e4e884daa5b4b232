// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"strconv"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

type crossrefResponse struct {
	Status  string       `json:"status"`
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title           []string         `json:"title"`
	Author          []crossrefAuthor `json:"author"`
	PublishedPrint  crossrefDate     `json:"published-print"`
	PublishedOnline crossrefDate     `json:"published-online"`
	Issued          crossrefDate     `json:"issued"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() string {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] > 0 {
		return strconv.Itoa(d.DateParts[0][0])
	}
	return ""
}

// Crossref is the authoritative metadata source. It never supplies content.
type Crossref struct {
	base
	cache *metaCache
}

// NewCrossref returns the Crossref provider.
func NewCrossref(opts Options) *Crossref {
	return &Crossref{base: newBase(NameCrossref, crossrefAPIBase, opts), cache: newMetaCache()}
}

// FetchMetadata looks doi up in Crossref, using the per-DOI cache first.
func (p *Crossref) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	if m, ok := p.cache.get(doi); ok {
		return m
	}

	var cr crossrefResponse
	if err := p.getJSON(ctx, crossrefAPIBase+doi, nil, &cr); err != nil {
		return p.miss(doi, err)
	}
	if cr.Status != "ok" {
		return p.miss(doi, nil)
	}

	m := &types.Metadata{DOI: doi, Source: NameCrossref}
	if len(cr.Message.Title) > 0 {
		m.Title = strings.TrimSpace(cr.Message.Title[0])
	}
	for _, d := range []crossrefDate{cr.Message.PublishedPrint, cr.Message.PublishedOnline, cr.Message.Issued} {
		if y := d.year(); y != "" {
			m.Year = y
			break
		}
	}
	for _, a := range cr.Message.Author {
		if name := strings.TrimSpace(a.Given + " " + a.Family); name != "" {
			m.Authors = append(m.Authors, name)
		} else if a.Name != "" {
			m.Authors = append(m.Authors, a.Name)
		}
	}

	p.cache.put(doi, m)
	return m
}

// FetchContent always fails: Crossref only serves metadata.
func (p *Crossref) FetchContent(context.Context, string, *types.Metadata, string) bool {
	return false
}
