// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrInvalidDOI is returned for input that does not normalize to a DOI.
var ErrInvalidDOI = errors.New("not a valid DOI")

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// doiPrefix matches resolver URLs and "doi:" labels in front of a DOI.
var doiPrefix = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)

// arxivPattern matches bare arXiv IDs: "2301.07041", "arXiv:2301.07041",
// "2301.07041v2". They are rewritten to their DataCite DOI.
var arxivPattern = regexp.MustCompile(`(?i)^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// trailingPunct is stripped from pasted identifiers ("10.1/x)." etc).
const trailingPunct = ".,;})] "

// NormalizeDOI trims resolver prefixes and trailing punctuation from raw and
// validates the result. Bare arXiv identifiers become "10.48550/arXiv.<id>".
func NormalizeDOI(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := arxivPattern.FindStringSubmatch(s); m != nil {
		return "10.48550/arXiv." + m[1], nil
	}

	s = doiPrefix.ReplaceAllString(s, "")
	s = strings.TrimRight(s, trailingPunct)
	if !doiPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDOI, raw)
	}
	return s, nil
}

// NormalizeAll normalizes raws, dropping duplicates while keeping the first
// occurrence's position. Inputs that fail to normalize are returned in
// rejected, in input order.
func NormalizeAll(raws []string) (dois, rejected []string) {
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		doi, err := NormalizeDOI(raw)
		if err != nil {
			rejected = append(rejected, raw)
			continue
		}
		if seen[doi] {
			continue
		}
		seen[doi] = true
		dois = append(dois, doi)
	}
	return dois, rejected
}

// ReadIdentifiers reads one identifier per line, ignoring blank lines and
// lines starting with "#".
func ReadIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading identifiers: %w", err)
	}
	return ids, nil
}
