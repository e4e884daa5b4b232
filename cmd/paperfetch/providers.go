// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Test the connection to every provider",
	Long: `Providers sends one request to the root of each provider's API host and
reports whether it answered. Any response below HTTP 500 counts as reachable.`,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg := loadFetchConfig()
	client := httputil.NewClient(cfg.HTTPConfig, logger)
	set := provider.NewSet(cfg, client, logger)

	results := set.HealthCheck(cmd.Context())
	if down := printHealth(os.Stdout, results); down > 0 {
		return fmt.Errorf("%d provider(s) unreachable", down)
	}
	return nil
}

// printHealth writes one line per provider and returns how many failed.
func printHealth(w io.Writer, results []provider.Health) int {
	down := 0
	for _, h := range results {
		mark := "ok"
		if !h.OK {
			mark = "FAIL"
			down++
		}
		fmt.Fprintf(w, "  %-4s %-16s %-8s %s\n", mark, h.Provider, h.Latency.Round(time.Millisecond), h.Message)
	}
	return down
}
