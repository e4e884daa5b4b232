// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/internal/testutils"
	"github.com/pdiddy/paperfetch/pkg/types"
)

const sampleCrossref = `{
  "status": "ok",
  "message": {
    "title": ["Attention Is All You Need"],
    "author": [
      {"given": "Ashish", "family": "Vaswani"},
      {"given": "Noam", "family": "Shazeer"}
    ],
    "published-online": {"date-parts": [[2017, 6, 12]]},
    "issued": {"date-parts": [[2018]]}
  }
}`

func TestCrossref_FetchMetadataCached(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/works/10.5555/attn", r.URL.Path)
		fmt.Fprint(w, sampleCrossref)
	}))
	defer ts.Close()
	override(t, &crossrefAPIBase, ts.URL+"/works/")

	p := NewCrossref(testOpts())
	m := p.FetchMetadata(context.Background(), "10.5555/attn")
	require.NotNil(t, m)
	assert.Equal(t, "Attention Is All You Need", m.Title)
	assert.Equal(t, "2017", m.Year)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, m.Authors)
	assert.Equal(t, NameCrossref, m.Source)
	assert.Empty(t, m.PDFURL)

	again := p.FetchMetadata(context.Background(), "10.5555/attn")
	assert.Equal(t, m, again)
	assert.Equal(t, int32(1), calls.Load())

	assert.False(t, p.FetchContent(context.Background(), "10.5555/attn", m, destPath(t)))
}

func TestCrossref_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()
	override(t, &crossrefAPIBase, ts.URL+"/works/")

	assert.Nil(t, NewCrossref(testOpts()).FetchMetadata(context.Background(), "10.5555/none"))
}

func TestUnpaywall(t *testing.T) {
	body := testutils.PDFBody(t, 9000)
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "team@example.org", r.URL.Query().Get("email"))
		fmt.Fprintf(w, `{
		  "title": "Open Paper",
		  "year": 2020,
		  "z_authors": [{"given": "Ada", "family": "Lovelace"}],
		  "best_oa_location": {"url_for_pdf": "http://%s/oa.pdf"}
		}`, r.Host)
	})
	mux.HandleFunc("/oa.pdf", func(w http.ResponseWriter, r *http.Request) {
		testutils.ServePDF(w, body)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	override(t, &unpaywallAPIBase, ts.URL+"/v2/")

	p := NewUnpaywall(testOpts())
	m := p.FetchMetadata(context.Background(), "10.1/open")
	require.NotNil(t, m)
	assert.Equal(t, "Open Paper", m.Title)
	assert.Equal(t, "2020", m.Year)
	assert.Equal(t, []string{"Ada Lovelace"}, m.Authors)
	assert.Equal(t, ts.URL+"/oa.pdf", m.PDFURL)

	assert.True(t, p.FetchContent(context.Background(), "10.1/open", nil, destPath(t)))
}

func TestUnpaywall_NoEmailDisabled(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()
	override(t, &unpaywallAPIBase, ts.URL+"/v2/")

	opts := testOpts()
	opts.ContactEmail = ""
	p := NewUnpaywall(opts)
	assert.Nil(t, p.FetchMetadata(context.Background(), "10.1/x"))
	assert.False(t, p.FetchContent(context.Background(), "10.1/x", nil, destPath(t)))
	assert.Equal(t, int32(0), calls.Load())
}

func TestCORE(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer core-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
		  "title": "Repository Paper",
		  "yearPublished": 2015,
		  "authors": [{"name": "Grace Hopper"}],
		  "fullTextLink": "https://core.example/download/pdf/123.pdf"
		}`)
	}))
	defer ts.Close()
	override(t, &coreAPIBase, ts.URL+"/v3/works/")

	m := NewCORE(testOpts()).FetchMetadata(context.Background(), "10.1/core")
	require.NotNil(t, m)
	assert.Equal(t, "Repository Paper", m.Title)
	assert.Equal(t, "2015", m.Year)
	assert.Equal(t, "https://core.example/download/pdf/123.pdf", m.PDFURL)

	opts := testOpts()
	opts.CoreAPIKey = ""
	assert.Nil(t, NewCORE(opts).FetchMetadata(context.Background(), "10.1/core"))
}

const samplePMCArticle = `<?xml version="1.0"?>
<pmc-articleset><article><front><article-meta>
<title-group><article-title>Cell Signalling</article-title></title-group>
<contrib-group>
<contrib contrib-type="author"><name><surname>Franklin</surname><given-names>Rosalind</given-names></name></contrib>
<contrib contrib-type="editor"><name><surname>Editor</surname><given-names>Ed</given-names></name></contrib>
</contrib-group>
<pub-date pub-type="epub"><year>2019</year></pub-date>
</article-meta></front></article></pmc-articleset>`

func TestPMC(t *testing.T) {
	body := testutils.PDFBody(t, 9000)
	mux := http.NewServeMux()
	mux.HandleFunc("/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10.1/pmc[DOI]", r.URL.Query().Get("term"))
		fmt.Fprint(w, `{"esearchresult": {"idlist": ["424242"]}}`)
	})
	mux.HandleFunc("/eutils/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "424242", r.URL.Query().Get("id"))
		fmt.Fprint(w, samplePMCArticle)
	})
	mux.HandleFunc("/oa.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PMC424242", r.URL.Query().Get("id"))
		fmt.Fprintf(w, `<OA><records><record id="PMC424242">
<link format="tgz" href="http://%[1]s/pkg.tar.gz"/>
<link format="pdf" href="http://%[1]s/pmc.pdf"/>
</record></records></OA>`, r.Host)
	})
	mux.HandleFunc("/pmc.pdf", func(w http.ResponseWriter, r *http.Request) {
		testutils.ServePDF(w, body)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	override(t, &pmcEutilsBase, ts.URL+"/eutils/")
	override(t, &pmcOABase, ts.URL+"/oa.fcgi")

	p := NewPMC(testOpts())
	m := p.FetchMetadata(context.Background(), "10.1/pmc")
	require.NotNil(t, m)
	assert.Equal(t, "Cell Signalling", m.Title)
	assert.Equal(t, "2019", m.Year)
	assert.Equal(t, []string{"Rosalind Franklin"}, m.Authors)
	assert.Equal(t, "PMC424242", m.Extra["pmcid"])

	assert.True(t, p.FetchContent(context.Background(), "10.1/pmc", m, destPath(t)))
}

func TestDOAJ(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "doi:10.1/doaj"), r.URL.Path)
		fmt.Fprint(w, `{"results": [{"bibjson": {
		  "title": "Journal Article",
		  "year": "2021",
		  "author": [{"name": "Alan Turing"}],
		  "link": [
		    {"type": "homepage", "url": "https://j.example/"},
		    {"type": "fulltext", "url": "https://j.example/article/5"},
		    {"type": "fulltext", "url": "https://j.example/article/5.pdf", "content_type": "PDF"}
		  ]
		}}]}`)
	}))
	defer ts.Close()
	override(t, &doajAPIBase, ts.URL+"/api/search/articles/")

	m := NewDOAJ(testOpts()).FetchMetadata(context.Background(), "10.1/doaj")
	require.NotNil(t, m)
	assert.Equal(t, "Journal Article", m.Title)
	assert.Equal(t, "2021", m.Year)
	assert.Equal(t, "https://j.example/article/5.pdf", m.PDFURL)
}

func TestZenodo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `doi:"10.5281/zenodo.1"`, r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"hits": {"hits": [{
		  "metadata": {"title": "Dataset Paper", "publication_date": "2022-03-01",
		               "creators": [{"name": "Hopper, Grace"}]},
		  "files": [
		    {"key": "data.csv", "type": "csv", "links": {"self": "https://z.example/data.csv"}},
		    {"key": "paper.pdf", "type": "pdf", "links": {"self": "https://z.example/paper.pdf"}}
		  ]
		}]}}`)
	}))
	defer ts.Close()
	override(t, &zenodoAPIBase, ts.URL+"/api/records")

	m := NewZenodo(testOpts()).FetchMetadata(context.Background(), "10.5281/zenodo.1")
	require.NotNil(t, m)
	assert.Equal(t, "2022", m.Year)
	assert.Equal(t, "https://z.example/paper.pdf", m.PDFURL)
}

func TestZenodo_NoHits(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits": {"hits": []}}`)
	}))
	defer ts.Close()
	override(t, &zenodoAPIBase, ts.URL+"/api/records")

	assert.Nil(t, NewZenodo(testOpts()).FetchMetadata(context.Background(), "10.5281/zenodo.2"))
}

func TestOSF(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"attributes": {"title": "Preprint", "date_published": "2020-01-01T00:00:00"},
		  "links": {"download": "https://osf.example/download/abc"}}]}`)
	}))
	defer ts.Close()
	override(t, &osfAPIBase, ts.URL+"/v2/search/")

	m := NewOSF(testOpts()).FetchMetadata(context.Background(), "10.31219/osf.io/abc")
	require.NotNil(t, m)
	assert.Equal(t, "Preprint", m.Title)
	assert.Equal(t, "2020", m.Year)
	assert.Equal(t, "https://osf.example/download/abc", m.PDFURL)
}

func TestArxiv(t *testing.T) {
	body := testutils.PDFBody(t, 9000)
	var apiCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		assert.Equal(t, "2301.07041", r.URL.Query().Get("id_list"))
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"><entry>
<title>A   Preprint
  Title</title>
<published>2023-01-17T00:00:00Z</published>
<author><name>Jane Doe</name></author>
</entry></feed>`)
	})
	mux.HandleFunc("/pdf/2301.07041.pdf", func(w http.ResponseWriter, r *http.Request) {
		testutils.ServePDF(w, body)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	override(t, &arxivAPIBase, ts.URL+"/api/query")
	override(t, &arxivPDFBase, ts.URL+"/pdf/")

	p := NewArxiv(testOpts())
	m := p.FetchMetadata(context.Background(), "10.48550/arXiv.2301.07041")
	require.NotNil(t, m)
	assert.Equal(t, "A Preprint Title", m.Title)
	assert.Equal(t, "2023", m.Year)
	assert.Equal(t, ts.URL+"/pdf/2301.07041.pdf", m.PDFURL)

	assert.Nil(t, p.FetchMetadata(context.Background(), "10.1145/123"))
	assert.Equal(t, int32(1), apiCalls.Load())

	assert.True(t, p.FetchContent(context.Background(), "10.48550/arXiv.2301.07041", nil, destPath(t)))
	assert.False(t, p.FetchContent(context.Background(), "10.1145/123", nil, destPath(t)))
}

func TestArxivID(t *testing.T) {
	assert.Equal(t, "2301.07041", ArxivID("10.48550/arXiv.2301.07041"))
	assert.Equal(t, "2301.07041v2", ArxivID("10.48550/ARXIV.2301.07041v2"))
	assert.Empty(t, ArxivID("10.1145/2301.07041"))
}

func TestOpenAlex(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantURL string
	}{
		{
			name: "best location pdf",
			body: `{"title": "Graph Paper", "publication_year": 2018,
			  "authorships": [{"author": {"display_name": "Edsger Dijkstra"}}],
			  "open_access": {"is_oa": true, "oa_url": "https://oa.example/landing"},
			  "best_oa_location": {"pdf_url": "https://oa.example/paper.pdf"}}`,
			wantURL: "https://oa.example/paper.pdf",
		},
		{
			name: "oa url only",
			body: `{"display_name": "Graph Paper", "publication_year": 2018,
			  "open_access": {"is_oa": true, "oa_url": "https://oa.example/landing"},
			  "best_oa_location": null}`,
			wantURL: "https://oa.example/landing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "team@example.org", r.URL.Query().Get("mailto"))
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()
			override(t, &openAlexAPIBase, ts.URL+"/works/")

			m := NewOpenAlex(testOpts()).FetchMetadata(context.Background(), "10.1/graph")
			require.NotNil(t, m)
			assert.Equal(t, "Graph Paper", m.Title)
			assert.Equal(t, "2018", m.Year)
			assert.Equal(t, tt.wantURL, m.PDFURL)
		})
	}
}

func TestSemanticScholar(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, semanticFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"title": "S2 Paper", "year": 2016,
		  "authors": [{"name": "Claude Shannon"}],
		  "openAccessPdf": {"url": "https://s2.example/p.pdf"}}`)
	}))
	defer ts.Close()
	override(t, &semanticAPIBase, ts.URL+"/graph/v1/paper/")

	m := NewSemanticScholar(testOpts()).FetchMetadata(context.Background(), "10.1/s2")
	require.NotNil(t, m)
	assert.Equal(t, "S2 Paper", m.Title)
	assert.Equal(t, "https://s2.example/p.pdf", m.PDFURL)
}

func TestDOIResolver(t *testing.T) {
	body := testutils.PDFBody(t, 9000)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		testutils.ServePDF(w, body)
	}))
	defer ts.Close()
	override(t, &doiResolverBase, ts.URL+"/")

	p := NewDOIResolver(testOpts())
	assert.Nil(t, p.FetchMetadata(context.Background(), "10.1/x"))
	assert.True(t, p.FetchContent(context.Background(), "10.1/x", nil, destPath(t)))
}

func TestFetchVia_UsesOwnMetadataOnly(t *testing.T) {
	body := testutils.PDFBody(t, 9000)
	var apiCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/graph/v1/paper/", func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		fmt.Fprintf(w, `{"title": "T", "openAccessPdf": {"url": "http://%s/fresh.pdf"}}`, r.Host)
	})
	mux.HandleFunc("/fresh.pdf", func(w http.ResponseWriter, r *http.Request) {
		testutils.ServePDF(w, body)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	override(t, &semanticAPIBase, ts.URL+"/graph/v1/paper/")

	p := NewSemanticScholar(testOpts())
	foreign := &types.Metadata{DOI: "10.1/x", PDFURL: ts.URL + "/elsewhere.pdf", Source: NameCrossref}
	assert.True(t, p.FetchContent(context.Background(), "10.1/x", foreign, destPath(t)))
	assert.Equal(t, int32(1), apiCalls.Load())

	own := &types.Metadata{DOI: "10.1/x", PDFURL: ts.URL + "/fresh.pdf", Source: NameSemanticScholar}
	assert.True(t, p.FetchContent(context.Background(), "10.1/x", own, destPath(t)))
	assert.Equal(t, int32(1), apiCalls.Load())
}
