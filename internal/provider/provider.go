// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the open-access sources a DOI can be resolved
// against. Every provider satisfies the same Provider contract: metadata
// lookups never fail loudly, content fetches report a bool, and every
// outbound request waits on the provider's own rate limiter.
package provider

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/internal/validate"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Provider names as reported in outcomes and stats.
const (
	NameCrossref        = "Crossref"
	NameUnpaywall       = "Unpaywall"
	NameCORE            = "CORE"
	NamePMC             = "PubMedCentral"
	NameDOAJ            = "DOAJ"
	NameZenodo          = "Zenodo"
	NameOSF             = "OSF"
	NameArxiv           = "arXiv"
	NameOpenAlex        = "OpenAlex"
	NameSemanticScholar = "SemanticScholar"
	NameDOIResolver     = "DOIResolver"
)

// Provider is one external metadata and content source.
type Provider interface {
	// Name returns the provider identifier used in stats.
	Name() string

	// FetchMetadata returns what the provider knows about doi, or nil.
	// Transport and parse errors are logged and reported as nil.
	FetchMetadata(ctx context.Context, doi string) *types.Metadata

	// FetchContent finds a content URL for doi (from meta when it came from
	// this provider, otherwise by querying again) and saves a validated PDF
	// at path.
	FetchContent(ctx context.Context, doi string, meta *types.Metadata, path string) bool

	// FetchDirect saves a validated PDF from a URL this provider supplied.
	FetchDirect(ctx context.Context, rawURL, path string) bool

	// HealthCheck probes the provider's root domain.
	HealthCheck(ctx context.Context) (bool, string)
}

// Options configures the shared plumbing of every provider.
type Options struct {
	Client       *http.Client
	UserAgent    string
	ContactEmail string
	CoreAPIKey   string
	MinInterval  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	Logger       *slog.Logger
}

// OptionsFromConfig maps a run configuration onto provider options.
func OptionsFromConfig(cfg types.FetchConfig, client *http.Client, log *slog.Logger) Options {
	return Options{
		Client:       client,
		UserAgent:    cfg.UserAgent,
		ContactEmail: cfg.ContactEmail,
		CoreAPIKey:   cfg.CoreAPIKey,
		MinInterval:  cfg.MinInterval,
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       log,
	}
}

// maxLandingPage bounds how much of an HTML response is kept for the
// PDF-link fallback.
const maxLandingPage = 2 << 20

// errNotPDFResponse marks a 200 response that was not a PDF. It is
// permanent for the URL that produced it.
var errNotPDFResponse = errors.New("response is not a PDF")

// base holds the plumbing shared by every provider: its own limiter, the
// shared client, and the retrying fetch-and-validate routine.
type base struct {
	name        string
	client      *http.Client
	limiter     *ratelimit.Limiter
	userAgent   string
	email       string
	maxAttempts int
	backoff     time.Duration
	healthURL   string
	log         *slog.Logger
}

func newBase(name, apiBase string, opts Options) base {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: types.DefaultTimeout}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return base{
		name:        name,
		client:      client,
		limiter:     ratelimit.New(opts.MinInterval),
		userAgent:   ua,
		email:       opts.ContactEmail,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
		healthURL:   rootOf(apiBase),
		log:         log.With("provider", name),
	}
}

// Name returns the provider identifier.
func (b *base) Name() string { return b.name }

// get issues a rate-limited GET and returns the response when it is a 200.
// The caller closes the body. The request carries ctx, so cancelling a run
// aborts transfers already in flight instead of letting them finish and
// discarding the result.
func (b *base) get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	if err := b.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		httputil.Drain(resp)
		return nil, err
	}
	return resp, nil
}

func (b *base) getJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	resp, err := b.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing %s response: %w", b.name, err)
	}
	return nil
}

func (b *base) getXML(ctx context.Context, rawURL string, v any) error {
	resp, err := b.get(ctx, rawURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := xml.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing %s response: %w", b.name, err)
	}
	return nil
}

// miss logs a swallowed metadata error and returns nil.
func (b *base) miss(doi string, err error) *types.Metadata {
	if err != nil && !errors.Is(err, context.Canceled) {
		b.log.Debug("metadata lookup failed", "doi", doi, "error", err)
	}
	return nil
}

// FetchDirect saves a PDF from a URL this provider already supplied.
func (b *base) FetchDirect(ctx context.Context, rawURL, path string) bool {
	return b.fetchAndSave(ctx, rawURL, path, nil)
}

// fetchVia resolves a content URL from meta (when this provider produced it)
// or by calling lookup, then fetches it.
func (b *base) fetchVia(ctx context.Context, doi string, meta *types.Metadata, path string, lookup func(context.Context, string) *types.Metadata) bool {
	var pdfURL string
	if meta != nil && meta.Source == b.name {
		pdfURL = meta.PDFURL
	}
	if pdfURL == "" {
		if m := lookup(ctx, doi); m != nil {
			pdfURL = m.PDFURL
		}
	}
	if pdfURL == "" {
		return false
	}
	return b.fetchAndSave(ctx, pdfURL, path, nil)
}

// landingPage is an HTML response kept for the PDF-link fallback.
type landingPage struct {
	url  *url.URL
	body []byte
}

// fetchAndSave downloads rawURL through the validator with retry. When the
// URL serves HTML instead of a PDF, the page is scanned once for a PDF link
// and that link is fetched; the second hop never scans again.
func (b *base) fetchAndSave(ctx context.Context, rawURL, path string, header http.Header) bool {
	page, err := b.download(ctx, rawURL, path, header, true)
	if err == nil {
		return true
	}
	b.log.Debug("content fetch failed", "url", rawURL, "error", err)
	if page == nil || ctx.Err() != nil {
		return false
	}

	link := findPDFLink(page.body, page.url)
	if link == "" {
		return false
	}
	b.log.Debug("following PDF link from landing page", "page", page.url.String(), "link", link)
	if _, err := b.download(ctx, link, path, header, false); err != nil {
		b.log.Debug("landing page link failed", "url", link, "error", err)
		return false
	}
	return true
}

// download runs the retry loop for one URL. When keepLanding is true and the
// response is HTML, the page body is returned alongside errNotPDFResponse.
func (b *base) download(ctx context.Context, rawURL, path string, header http.Header, keepLanding bool) (*landingPage, error) {
	var page *landingPage
	err := httputil.Retry(ctx, b.maxAttempts, b.backoff, func(attempt int) error {
		resp, err := b.get(ctx, rawURL, header)
		if err != nil {
			if attempt > 1 || httputil.IsTransient(err) {
				b.log.Debug("fetch attempt failed", "url", rawURL, "attempt", attempt, "error", err)
			}
			return err
		}
		defer resp.Body.Close()

		ct := resp.Header.Get("Content-Type")
		if !validate.IsPDFContentType(ct) {
			if keepLanding && isHTML(ct) {
				body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLandingPage))
				if readErr == nil {
					page = &landingPage{url: resp.Request.URL, body: body}
				}
			}
			return fmt.Errorf("%w: %q", errNotPDFResponse, ct)
		}

		_, err = validate.Commit(resp.Body, ct, resp.ContentLength, path, b.log)
		return err
	})
	return page, err
}

// HealthCheck GETs the provider's root domain. Any answer below 500 counts
// as reachable.
func (b *base) HealthCheck(ctx context.Context) (bool, string) {
	resp, err := b.get(ctx, b.healthURL, nil)
	if err == nil {
		httputil.Drain(resp)
		return true, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode < 500 {
		return true, fmt.Sprintf("HTTP %d", se.StatusCode)
	}
	return false, err.Error()
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// rootOf returns scheme://host/ for an API base URL.
func rootOf(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return apiBase
	}
	return u.Scheme + "://" + u.Host + "/"
}
