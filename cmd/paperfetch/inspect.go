// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [dir]",
	Aliases: []string{"verify"},
	Short:   "Revalidate downloaded PDFs and count their pages",
	Long: `Inspect checks every PDF in the output directory (or dir) with the same
validation used during download, counts pages, and lists temporary files left
by interrupted downloads. --clean removes those temporary files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("clean", false, "remove leftover .part files")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("output_dir")
	if len(args) == 1 {
		dir = args[0]
	}

	rep, err := inspect.Scan(cmd.Context(), dir)
	if err != nil {
		return err
	}
	printInspection(os.Stdout, rep)

	if clean, _ := cmd.Flags().GetBool("clean"); clean && len(rep.Stale) > 0 {
		n, err := inspect.RemoveStale(rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %d temporary file(s)\n", n)
	}

	if bad := len(rep.Invalid()); bad > 0 {
		return fmt.Errorf("%d invalid PDF(s) in %s", bad, dir)
	}
	return nil
}

func printInspection(w io.Writer, rep inspect.Report) {
	for _, f := range rep.Files {
		switch {
		case !f.Valid():
			fmt.Fprintf(w, "  invalid: %s: %v\n", f.Name, f.Err)
		case f.ParseErr != "":
			fmt.Fprintf(w, "  ok: %s (%d bytes, pages unknown)\n", f.Name, f.Size)
		default:
			fmt.Fprintf(w, "  ok: %s (%d bytes, %d pages)\n", f.Name, f.Size, f.Pages)
		}
	}
	for _, name := range rep.Stale {
		fmt.Fprintf(w, "  stale: %s\n", name)
	}
	fmt.Fprintf(w, "\n%d PDF(s), %d invalid, %d pages, %d stale\n",
		len(rep.Files), len(rep.Invalid()), rep.Pages(), len(rep.Stale))
}
