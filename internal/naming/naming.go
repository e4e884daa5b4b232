// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package naming derives deterministic, filesystem-safe PDF names from
// metadata. The pipeline's skip-if-exists check relies on the same metadata
// always producing the same name.
package naming

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// MaxStemLength is the longest stem kept before the extension is appended.
const MaxStemLength = 200

const extension = ".pdf"

var (
	// reserved characters and control whitespace become "_".
	reservedChars = regexp.MustCompile(`[<>:"/\\|?*\n\r\t]+`)
	// anything outside the portable set is dropped.
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9 _\-.()\[\],&]+`)
)

// Name returns "<authors>, <year> - <title> - <doi>.pdf", omitting the parts
// that are unknown. It never returns an empty stem.
func Name(meta types.Metadata) string {
	var parts []string
	if c := Citation(meta); c != "" {
		parts = append(parts, c)
	}
	if meta.HasTitle() {
		parts = append(parts, strings.TrimSpace(meta.Title))
	}
	doi := strings.TrimSpace(meta.DOI)
	if doi == "" {
		doi = "unknown"
	}
	parts = append(parts, strings.ReplaceAll(doi, "/", "_"))

	stem := Sanitize(strings.Join(parts, " - "))
	if stem == "" {
		stem = "unknown"
	}
	return stem + extension
}

// Citation returns "<authors>, <year>", either half alone when the other is
// unknown, or "" when both are.
func Citation(meta types.Metadata) string {
	authors := FormatAuthors(meta.Authors)
	year := strings.TrimSpace(meta.Year)
	switch {
	case authors != "" && year != "":
		return authors + ", " + year
	case authors != "":
		return authors
	default:
		return year
	}
}

// FormatAuthors renders an author list by surname: "Smith",
// "Smith & Jones", or "Smith et al.".
func FormatAuthors(authors []string) string {
	var surnames []string
	for _, a := range authors {
		if s := Surname(a); s != "" {
			surnames = append(surnames, s)
		}
	}
	switch len(surnames) {
	case 0:
		return ""
	case 1:
		return surnames[0]
	case 2:
		return surnames[0] + " & " + surnames[1]
	default:
		return surnames[0] + " et al."
	}
}

// Surname extracts the family name from "Family, Given" or "Given Family".
func Surname(name string) string {
	name = strings.TrimSpace(name)
	if family, _, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(family)
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Sanitize maps text onto a cross-platform filename character set and
// truncates it to MaxStemLength.
func Sanitize(text string) string {
	text = reservedChars.ReplaceAllString(text, "_")
	text = unsafeChars.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) > MaxStemLength {
		text = strings.TrimSpace(text[:MaxStemLength])
	}
	return text
}
