// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Base URLs for the arXiv export API and PDF mirror. Declared as vars so
// tests can substitute httptest servers.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

// arxivDOIPattern matches DataCite DOIs minted for arXiv preprints:
// "10.48550/arXiv.2301.07041" or "10.48550/arXiv.2301.07041v2".
var arxivDOIPattern = regexp.MustCompile(`(?i)^10\.48550/arXiv\.(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// ArxivID extracts the arXiv identifier from an arXiv DOI, or "".
func ArxivID(doi string) string {
	if m := arxivDOIPattern.FindStringSubmatch(doi); m != nil {
		return m[1]
	}
	return ""
}

// Arxiv serves preprints whose DOI carries an arXiv identifier.
type Arxiv struct {
	base
}

// NewArxiv returns the arXiv provider.
func NewArxiv(opts Options) *Arxiv {
	return &Arxiv{base: newBase(NameArxiv, arxivAPIBase, opts)}
}

// FetchMetadata reads the Atom entry for an arXiv DOI. Other DOIs return nil
// without a request.
func (p *Arxiv) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	id := ArxivID(doi)
	if id == "" {
		return nil
	}

	var feed arxivFeed
	if err := p.getXML(ctx, arxivAPIBase+"?"+url.Values{"id_list": {id}}.Encode(), &feed); err != nil {
		return p.miss(doi, err)
	}
	if len(feed.Entries) == 0 {
		return p.miss(doi, nil)
	}

	e := feed.Entries[0]
	m := &types.Metadata{
		DOI:    doi,
		Title:  strings.Join(strings.Fields(e.Title), " "),
		PDFURL: arxivPDFBase + id + ".pdf",
		Source: NameArxiv,
	}
	if len(e.Published) >= 4 {
		m.Year = e.Published[:4]
	}
	for _, a := range e.Authors {
		m.Authors = append(m.Authors, strings.TrimSpace(a.Name))
	}
	return m
}

// FetchContent downloads the PDF for an arXiv DOI. The URL is derived from
// the identifier, so no metadata request is needed.
func (p *Arxiv) FetchContent(ctx context.Context, doi string, _ *types.Metadata, path string) bool {
	id := ArxivID(doi)
	if id == "" {
		return false
	}
	return p.fetchAndSave(ctx, arxivPDFBase+id+".pdf", path, nil)
}
