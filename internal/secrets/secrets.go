// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files and
// from dotenv files. In a secrets directory each file is one secret: the
// filename is the key and the trimmed contents are the value.
//
// Recognised keys: core-api-key, contact-email.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Key files understood by Apply.
const (
	KeyCoreAPIKey   = "core-api-key"
	KeyContactEmail = "contact-email"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *slog.Logger) (map[string]string, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg that are still empty. Values already set
// by flags, config or environment win.
func Apply(s map[string]string, cfg *types.FetchConfig) {
	if cfg.CoreAPIKey == "" {
		cfg.CoreAPIKey = s[KeyCoreAPIKey]
	}
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = s[KeyContactEmail]
	}
}

// LoadEnv loads KEY=value pairs from the given dotenv files into the
// process environment without overriding variables that are already set.
// Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}
