// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inspect audits an output directory after the fact: every PDF is
// revalidated, its pages are counted, and temporary files left behind by
// interrupted downloads are listed.
package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paperfetch/internal/validate"
)

// Finding describes one PDF in the directory.
type Finding struct {
	Name  string
	Size  int64
	Pages int

	// Err is the validation failure, nil for a valid file.
	Err error

	// ParseErr is set when the file validates but its page tree could
	// not be read.
	ParseErr string
}

// Valid reports whether the file passed validation.
func (f Finding) Valid() bool { return f.Err == nil }

// Report is the result of one Scan.
type Report struct {
	Dir   string
	Files []Finding
	Stale []string
}

// Invalid returns the findings that failed validation.
func (r Report) Invalid() []Finding {
	var out []Finding
	for _, f := range r.Files {
		if !f.Valid() {
			out = append(out, f)
		}
	}
	return out
}

// Pages returns the total page count of the valid files.
func (r Report) Pages() int {
	n := 0
	for _, f := range r.Files {
		n += f.Pages
	}
	return n
}

// Scan inspects the top level of dir.
func Scan(ctx context.Context, dir string) (Report, error) {
	rep := Report{Dir: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rep, fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		switch {
		case strings.HasSuffix(lower, validate.PartSuffix):
			rep.Stale = append(rep.Stale, name)
		case strings.HasSuffix(lower, ".pdf"):
			rep.Files = append(rep.Files, inspectFile(filepath.Join(dir, name)))
		}
	}

	sort.Slice(rep.Files, func(i, j int) bool { return rep.Files[i].Name < rep.Files[j].Name })
	sort.Strings(rep.Stale)
	return rep, nil
}

func inspectFile(path string) Finding {
	f := Finding{Name: filepath.Base(path)}
	if info, err := os.Stat(path); err == nil {
		f.Size = info.Size()
	}
	if f.Err = validate.CheckFile(path); f.Err != nil {
		return f
	}
	pages, err := countPages(path)
	if err != nil {
		f.ParseErr = err.Error()
		return f
	}
	f.Pages = pages
	return f
}

// countPages reads the page tree. The parser panics on some malformed
// inputs, so panics are turned into errors.
func countPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", filepath.Base(path), r)
		}
	}()

	file, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	defer file.Close()
	return r.NumPage(), nil
}

// RemoveStale deletes the temporary files listed in rep and returns how
// many were removed.
func RemoveStale(rep Report) (int, error) {
	removed := 0
	for _, name := range rep.Stale {
		if err := os.Remove(filepath.Join(rep.Dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
