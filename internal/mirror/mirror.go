// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mirror copies committed PDFs into a blob bucket. The bucket is
// addressed by a gocloud URL: file:///path, mem://, or s3://bucket?region=...
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrNotMirrored is returned by Upload when the local file is missing or
// empty.
var ErrNotMirrored = errors.New("nothing to mirror")

// Mirror uploads files to one bucket under an optional key prefix.
type Mirror struct {
	bucket *blob.Bucket
	prefix string
	log    *slog.Logger
}

// Open opens the bucket at bucketURL. Keys are written under prefix.
func Open(ctx context.Context, bucketURL, prefix string, log *slog.Logger) (*Mirror, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", bucketURL, err)
	}
	return New(bkt, prefix, log), nil
}

// New wraps an already open bucket.
func New(bkt *blob.Bucket, prefix string, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{
		bucket: bkt,
		prefix: strings.Trim(prefix, "/"),
		log:    log.With("component", "mirror"),
	}
}

// Key returns the object key a local file is stored under.
func (m *Mirror) Key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

// Upload copies localPath into the bucket and tags it with doi. An object
// that already exists with the same size is left alone and reported as
// skipped.
func (m *Mirror) Upload(ctx context.Context, localPath, doi string) (key string, skipped bool, err error) {
	info, err := os.Stat(localPath)
	if err != nil || info.Size() == 0 {
		return "", false, fmt.Errorf("%w: %s", ErrNotMirrored, localPath)
	}
	key = m.Key(localPath)

	if attrs, err := m.bucket.Attributes(ctx, key); err == nil && attrs.Size == info.Size() {
		m.log.Debug("object already mirrored", "key", key)
		return key, true, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", false, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	if err := m.write(ctx, key, f, doi); err != nil {
		return "", false, err
	}

	m.log.Info("mirrored", "doi", doi, "key", key, "bytes", info.Size())
	return key, false, nil
}

// write streams r into key. A failed copy cancels the writer's context before
// closing it so the bucket never commits a partial object.
func (m *Mirror) write(ctx context.Context, key string, r io.Reader, doi string) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := m.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"doi": doi},
	})
	if err != nil {
		return fmt.Errorf("creating writer for %s: %w", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

// Close releases the bucket.
func (m *Mirror) Close() error {
	return m.bucket.Close()
}
