// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperfetch CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/secrets"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is configured from --log-level before any command runs.
var logger = slog.Default()

// rootCmd is the base command for the paperfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "paperfetch",
	Short: "Download open-access PDFs for DOIs",
	Long: `paperfetch resolves DOIs to PDF files by asking a fixed set of open-access
providers (Crossref, Unpaywall, CORE, PubMed Central, DOAJ, Zenodo, OSF, arXiv,
OpenAlex, Semantic Scholar and the DOI resolver). Every download is validated
before it is kept. Identifiers that cannot be fetched are written to a failed
list that a later run can retry.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		l, err := newLogger(level)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paperfetch.yaml or ~/.config/paperfetch/config.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.StringP("output-dir", "o", "papers", "directory receiving the PDFs")
	pf.String("email", "", "contact email sent to providers (required by Unpaywall)")
	pf.String("core-api-key", "", "CORE API key; the CORE provider is skipped without one")
	pf.Duration("timeout", types.DefaultTimeout, "HTTP request timeout")
	pf.Duration("min-interval", types.DefaultMinInterval, "minimum spacing between requests to one provider")
	pf.Int("max-attempts", types.DefaultMaxAttempts, "attempts per content URL for transient failures")
	pf.Bool("verify-ssl", true, "verify TLS certificates")
	pf.String("user-agent", "", "User-Agent header (default paperfetch/<version> with the contact email)")

	for key, flag := range map[string]string{
		"output_dir":    "output-dir",
		"contact_email": "email",
		"core_api_key":  "core-api-key",
		"timeout":       "timeout",
		"min_interval":  "min-interval",
		"max_attempts":  "max-attempts",
		"verify_ssl":    "verify-ssl",
		"user_agent":    "user-agent",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	if err := secrets.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperfetch"))
		}
	}

	viper.SetEnvPrefix("PAPERFETCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns a text logger on stderr at the named level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// loadFetchConfig assembles the run configuration from flags, config file,
// environment and .secrets/, in that order of precedence.
func loadFetchConfig() types.FetchConfig {
	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
			VerifySSL: viper.GetBool("verify_ssl"),
		},
		OutputDir:       viper.GetString("output_dir"),
		ContactEmail:    viper.GetString("contact_email"),
		CoreAPIKey:      viper.GetString("core_api_key"),
		MaxConcurrency:  viper.GetInt("max_concurrency"),
		MetadataWorkers: viper.GetInt("metadata_workers"),
		MinInterval:     viper.GetDuration("min_interval"),
		MaxAttempts:     viper.GetInt("max_attempts"),
		RetryBackoff:    viper.GetDuration("retry_backoff"),
		FailedListName:  viper.GetString("failed_list_name"),
	}
	secrets.Apply(loadedSecrets, &cfg)
	if cfg.UserAgent == "" && version != "dev" {
		cfg.UserAgent = "paperfetch/" + version
		if cfg.ContactEmail != "" {
			cfg.UserAgent += " (mailto:" + cfg.ContactEmail + ")"
		}
	}
	return cfg.WithDefaults()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
