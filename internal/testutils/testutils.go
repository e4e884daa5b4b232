// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutils provides shared fixtures for package tests.
package testutils

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// PDFBody returns a byte slice of exactly size bytes that starts with the PDF
// header and ends with an EOF marker. size must be at least 64.
func PDFBody(t testing.TB, size int) []byte {
	t.Helper()
	const (
		header  = "%PDF-1.7\n"
		trailer = "\nstartxref\n0\n%%EOF\n"
	)
	if size < len(header)+len(trailer) {
		t.Fatalf("PDFBody: size %d too small", size)
	}
	var b bytes.Buffer
	b.WriteString(header)
	for b.Len() < size-len(trailer) {
		b.WriteByte(byte('a' + b.Len()%26))
	}
	b.WriteString(trailer)
	return b.Bytes()
}

// TruncatedPDFBody returns a PDF-looking body of size bytes with no EOF marker.
func TruncatedPDFBody(t testing.TB, size int) []byte {
	t.Helper()
	body := PDFBody(t, size+64)
	return body[:size]
}

// ServePDF writes body as an application/pdf response with a Content-Length.
func ServePDF(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// PDFServer starts an httptest server that serves body at every path.
func PDFServer(t testing.TB, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ServePDF(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// HTMLLandingPage returns a minimal HTML page linking to href with text.
func HTMLLandingPage(href, text string) string {
	return fmt.Sprintf(`<!doctype html><html><body>
<a href="/about">About</a>
<a href="%s">%s</a>
</body></html>`, href, text)
}
