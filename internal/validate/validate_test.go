// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/internal/testutils"
)

func TestCommit_ValidPDF(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")
	body := testutils.PDFBody(t, 8000)

	n, err := Commit(bytes.NewReader(body), "application/pdf", int64(len(body)), dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.NoFileExists(t, PartPath(dest))
}

func TestCommit_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        func(t *testing.T) []byte
		wantErr     error
	}{
		{
			name:        "html content type",
			contentType: "text/html; charset=utf-8",
			body:        func(t *testing.T) []byte { return testutils.PDFBody(t, 8000) },
			wantErr:     ErrNotPDF,
		},
		{
			name:        "html error page labelled pdf",
			contentType: "application/pdf",
			body: func(t *testing.T) []byte {
				return []byte(strings.Repeat("<p>error</p>", 20)[:200])
			},
			wantErr: ErrTooSmall,
		},
		{
			name:        "just under threshold",
			contentType: "application/pdf",
			body:        func(t *testing.T) []byte { return testutils.PDFBody(t, MinPDFSize-1) },
			wantErr:     ErrTooSmall,
		},
		{
			name:        "missing magic header",
			contentType: "application/pdf",
			body: func(t *testing.T) []byte {
				b := testutils.PDFBody(t, 8000)
				copy(b, "<html>")
				return b
			},
			wantErr: ErrBadHeader,
		},
		{
			name:        "truncated transfer",
			contentType: "application/pdf",
			body:        func(t *testing.T) []byte { return testutils.TruncatedPDFBody(t, 8000) },
			wantErr:     ErrTruncated,
		},
		{
			name:        "eof marker outside trailer window",
			contentType: "application/pdf",
			body: func(t *testing.T) []byte {
				b := testutils.PDFBody(t, 6000)
				return append(b, bytes.Repeat([]byte{' '}, 2*trailerWindow)...)
			},
			wantErr: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "paper.pdf")
			body := tt.body(t)

			_, err := Commit(bytes.NewReader(body), tt.contentType, -1, dest, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			assert.NoFileExists(t, dest)
			assert.NoFileExists(t, PartPath(dest))
		})
	}
}

func TestCommit_LengthMismatchIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")
	body := testutils.PDFBody(t, 9000)

	_, err := Commit(bytes.NewReader(body), "application/pdf", 50000, dest, nil)
	require.NoError(t, err)
	assert.FileExists(t, dest)
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n <= 0 {
		return 0, io.ErrUnexpectedEOF
	}
	k := len(p)
	if k > r.n {
		k = r.n
	}
	for i := 0; i < k; i++ {
		p[i] = 'x'
	}
	r.n -= k
	return k, nil
}

func TestCommit_ReadErrorRemovesPart(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")

	_, err := Commit(&failingReader{n: 7000}, "application/pdf", -1, dest, nil)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, PartPath(dest))
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.pdf")
	require.NoError(t, os.WriteFile(good, testutils.PDFBody(t, 7000), 0o644))
	assert.NoError(t, CheckFile(good))

	small := filepath.Join(dir, "small.pdf")
	require.NoError(t, os.WriteFile(small, []byte("%PDF-1.4 %%EOF"), 0o644))
	assert.ErrorIs(t, CheckFile(small), ErrTooSmall)

	cut := filepath.Join(dir, "cut.pdf")
	require.NoError(t, os.WriteFile(cut, testutils.TruncatedPDFBody(t, 7000), 0o644))
	assert.ErrorIs(t, CheckFile(cut), ErrTruncated)

	assert.Error(t, CheckFile(filepath.Join(dir, "missing.pdf")))
}

func TestIsPDFContentType(t *testing.T) {
	assert.True(t, IsPDFContentType("application/pdf"))
	assert.True(t, IsPDFContentType("Application/PDF; charset=binary"))
	assert.False(t, IsPDFContentType("text/html"))
	assert.False(t, IsPDFContentType(""))
}
