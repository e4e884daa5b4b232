// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/acquire"
	"github.com/pdiddy/paperfetch/internal/catalog"
)

var historyCmd = &cobra.Command{
	Use:   "history [DOI]",
	Short: "Show past runs, or every recorded attempt for one DOI",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("db", "", "history database (default <output-dir>/"+catalog.DefaultFile+")")
	historyCmd.Flags().IntP("limit", "n", 10, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(viper.GetString("output_dir"), catalog.DefaultFile)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no history at %s", dbPath)
	}
	store, err := catalog.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		doi, err := acquire.NormalizeDOI(args[0])
		if err != nil {
			return err
		}
		entries, err := store.History(cmd.Context(), doi)
		if err != nil {
			return err
		}
		printEntries(os.Stdout, doi, entries)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []catalog.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, r := range runs {
		elapsed := "unfinished"
		if !r.FinishedAt.IsZero() {
			elapsed = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s  %s  %-10s fetched %d, skipped %d, failed %d, cancelled %d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, elapsed,
			r.Stats.Success, r.Stats.Skipped, r.Stats.Failed, r.Stats.Cancelled)
	}
}

func printEntries(w io.Writer, doi string, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No attempts recorded for %s\n", doi)
		return
	}
	for _, e := range entries {
		detail := e.Reason
		if e.Provider != "" {
			detail = "via " + e.Provider
		}
		fmt.Fprintf(w, "%s  %-9s %s\n", e.RecordedAt.Local().Format("2006-01-02 15:04"), e.Status, detail)
	}
}
