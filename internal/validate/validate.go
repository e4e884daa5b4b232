// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate commits streamed HTTP bodies to disk only when they are
// complete, structurally plausible PDFs.
//
// Bytes are written to a ".part" sibling of the destination and renamed into
// place only after every check passes, so a truncated or mislabeled response
// is never visible at the final path.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// MinPDFSize is the smallest body accepted as a genuine paper. The download
// pipeline uses the same threshold to decide whether an existing file counts
// as already downloaded.
const MinPDFSize = 5000

// PartSuffix is appended to the destination while a download streams.
const PartSuffix = ".part"

const (
	lengthTolerance = 1000
	trailerWindow   = 1024
	pdfContentType  = "application/pdf"
)

var (
	pdfMagic     = []byte("%PDF-")
	pdfEOFMarker = []byte("%%EOF")
)

// Rejection reasons. Callers match them with errors.Is.
var (
	ErrNotPDF    = errors.New("content type is not PDF")
	ErrTooSmall  = errors.New("file too small to be a PDF")
	ErrBadHeader = errors.New("missing PDF header")
	ErrTruncated = errors.New("missing PDF EOF marker")
)

// IsPDFContentType reports whether a Content-Type header declares a PDF.
func IsPDFContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), pdfContentType)
}

// PartPath returns the temporary path used while streaming to dest.
func PartPath(dest string) string {
	return dest + PartSuffix
}

// Commit streams r to dest and returns the number of bytes committed.
// contentLength is the declared length, or a negative value when unknown.
// The checks run in a fixed order: declared type, size, header, trailer.
// On any failure the temporary file is removed and dest is left untouched.
func Commit(r io.Reader, contentType string, contentLength int64, dest string, log *slog.Logger) (int64, error) {
	if log == nil {
		log = slog.Default()
	}
	if !IsPDFContentType(contentType) {
		return 0, fmt.Errorf("%w: %q", ErrNotPDF, contentType)
	}

	tmp := PartPath(dest)
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmp)
		}
	}()

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if n < MinPDFSize {
		return n, fmt.Errorf("%w (%d bytes)", ErrTooSmall, n)
	}
	if contentLength >= 0 && abs(n-contentLength) > lengthTolerance {
		// Servers often send approximate lengths; only worth a note.
		log.Warn("content length mismatch", "declared", contentLength, "actual", n, "path", dest)
	}

	if err := checkStructure(tmp, n); err != nil {
		return n, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	committed = true
	return n, nil
}

// CheckFile re-runs the size, header and trailer checks against a file that
// is already on disk.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() < MinPDFSize {
		return fmt.Errorf("%w (%d bytes)", ErrTooSmall, info.Size())
	}
	return checkStructure(path, info.Size())
}

func checkStructure(path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return ErrBadHeader
	}

	offset := size - trailerWindow
	if offset < 0 {
		offset = 0
	}
	trailer := make([]byte, size-offset)
	if _, err := f.ReadAt(trailer, offset); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading trailer: %w", err)
	}
	if !bytes.Contains(trailer, pdfEOFMarker) {
		return ErrTruncated
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
