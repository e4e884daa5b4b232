// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"crypto/tls"
	"log/slog"
	"net/http"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// NewClient builds the HTTP client shared by all providers. When
// cfg.VerifySSL is false, certificate verification is disabled and a
// warning is logged once.
func NewClient(cfg types.HTTPConfig, log *slog.Logger) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		if log != nil {
			log.Warn("TLS certificate verification disabled")
		}
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user opted out
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}
