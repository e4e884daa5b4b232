// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Base URLs for the NCBI E-utilities and the PMC open-access service.
// Declared as vars so tests can substitute httptest servers.
var (
	pmcEutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	pmcOABase     = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi"
)

type pmcSearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pmcArticleSet struct {
	Articles []pmcArticle `xml:"article"`
}

type pmcArticle struct {
	Title    string       `xml:"front>article-meta>title-group>article-title"`
	Contribs []pmcContrib `xml:"front>article-meta>contrib-group>contrib"`
	PubDates []pmcPubDate `xml:"front>article-meta>pub-date"`
}

type pmcContrib struct {
	Type    string `xml:"contrib-type,attr"`
	Surname string `xml:"name>surname"`
	Given   string `xml:"name>given-names"`
}

type pmcPubDate struct {
	Year string `xml:"year"`
}

type pmcOAResponse struct {
	Records []struct {
		Links []struct {
			Format string `xml:"format,attr"`
			Href   string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"records>record"`
}

// PMC resolves DOIs through PubMed Central: esearch finds the PMC id,
// efetch supplies metadata, and the OA service lists the PDF package.
type PMC struct {
	base
}

// NewPMC returns the PubMed Central provider.
func NewPMC(opts Options) *PMC {
	return &PMC{base: newBase(NamePMC, pmcEutilsBase, opts)}
}

func (p *PMC) lookupID(ctx context.Context, doi string) (string, error) {
	q := url.Values{"db": {"pmc"}, "term": {doi + "[DOI]"}, "retmode": {"json"}}
	var sr pmcSearchResponse
	if err := p.getJSON(ctx, pmcEutilsBase+"esearch.fcgi?"+q.Encode(), nil, &sr); err != nil {
		return "", err
	}
	if len(sr.Result.IDList) == 0 {
		return "", nil
	}
	return sr.Result.IDList[0], nil
}

// FetchMetadata finds doi in PMC and reads the article front matter.
func (p *PMC) FetchMetadata(ctx context.Context, doi string) *types.Metadata {
	id, err := p.lookupID(ctx, doi)
	if err != nil || id == "" {
		return p.miss(doi, err)
	}

	q := url.Values{"db": {"pmc"}, "id": {id}, "retmode": {"xml"}}
	var set pmcArticleSet
	if err := p.getXML(ctx, pmcEutilsBase+"efetch.fcgi?"+q.Encode(), &set); err != nil {
		return p.miss(doi, err)
	}
	if len(set.Articles) == 0 {
		return p.miss(doi, nil)
	}

	a := set.Articles[0]
	m := &types.Metadata{
		DOI:    doi,
		Title:  strings.TrimSpace(a.Title),
		Source: NamePMC,
		Extra:  map[string]string{"pmcid": "PMC" + id},
	}
	for _, d := range a.PubDates {
		if d.Year != "" {
			m.Year = d.Year
			break
		}
	}
	for _, c := range a.Contribs {
		if c.Type != "" && c.Type != "author" {
			continue
		}
		if name := strings.TrimSpace(c.Given + " " + c.Surname); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	return m
}

// FetchContent asks the PMC OA service for the article's PDF link.
func (p *PMC) FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool {
	var pmcid string
	if meta != nil && meta.Source == NamePMC {
		pmcid = meta.Extra["pmcid"]
	}
	if pmcid == "" {
		id, err := p.lookupID(ctx, doi)
		if err != nil || id == "" {
			p.miss(doi, err)
			return false
		}
		pmcid = "PMC" + id
	}

	pdfURL, err := p.oaPDF(ctx, pmcid)
	if err != nil || pdfURL == "" {
		p.miss(doi, err)
		return false
	}
	return p.fetchAndSave(ctx, pdfURL, path, nil)
}

func (p *PMC) oaPDF(ctx context.Context, pmcid string) (string, error) {
	var oa pmcOAResponse
	if err := p.getXML(ctx, fmt.Sprintf("%s?id=%s", pmcOABase, url.QueryEscape(pmcid)), &oa); err != nil {
		return "", err
	}
	for _, r := range oa.Records {
		for _, l := range r.Links {
			if l.Format == "pdf" && l.Href != "" {
				// The OA service advertises FTP links; the same tree is served over HTTPS.
				return strings.Replace(l.Href, "ftp://", "https://", 1), nil
			}
		}
	}
	return "", nil
}
