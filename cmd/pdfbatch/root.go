package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/projectdocs/pdfbatch/internal/cli"
	"github.com/projectdocs/pdfbatch/internal/cli/config"
	"github.com/projectdocs/pdfbatch/internal/cli/prompt"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
)

// rootCmd is the base command; the whole tool is a single command driven by
// flags.
var rootCmd = &cobra.Command{
	Use:   "pdfbatch -i <inputDir> -o <outputDir>",
	Short: "Converts Word document trees to PDF and renames outputs by project identifier.",
	Long: `pdfbatch walks a directory tree of Word documents, converts each one to
PDF with LibreOffice, and renames the results after the project identifier
found inside the document: identifier, country (from an optional mapping
spreadsheet) and language tag, e.g. P654321_Kenya_EN.pdf.

Existing PDFs in the tree are copied and renamed the same way. A final
reconciliation pass inserts country names into files produced by earlier
runs that lacked a mapping.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Fill in missing required paths interactively before validation so
		// double-click style usage works without any flags.
		if prompt.Interactive() {
			if err := promptMissingPaths(cmd); err != nil {
				return err
			}
		}

		cfg, handler, err := config.LoadAndValidate(cfgFile, version, cmd.Flags())
		if err != nil {
			return err
		}
		return cli.Run(ctx, cfg, handler, cmd.OutOrStdout())
	},
}

func promptMissingPaths(cmd *cobra.Command) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	for _, name := range []string{"input", "output"} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed || flag.Value.String() != "" {
			continue
		}
		value, err := prompt.Line(reader, out, fmt.Sprintf("Enter %s directory", name))
		if err != nil {
			return err
		}
		if value != "" {
			if err := cmd.Flags().Set(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Execute runs the root command. Cobra prints the error and exits non-zero
// when RunE fails.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: search . and $HOME/.config/pdfbatch/)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging output")

	rootCmd.Flags().StringP("input", "i", "", "Directory tree containing Word documents and PDFs")
	rootCmd.Flags().StringP("output", "o", "", "Directory the converted and renamed PDFs are written under")

	rootCmd.Flags().Bool("rename", true, "Rename outputs by extracted project identifier, country and language")
	rootCmd.Flags().StringP("mapping", "m", "", "Spreadsheet (.xlsx/.csv) mapping project identifiers to country names")
	rootCmd.Flags().String("mapping-id-column", "", "Mapping column holding identifiers (header name or zero-based index)")
	rootCmd.Flags().String("mapping-country-column", "", "Mapping column holding country names (header name or zero-based index)")

	rootCmd.Flags().Int("concurrency", 0, "Number of parallel conversion workers (0 = derive from CPU count)")
	rootCmd.Flags().Int("batch-size", 0, "Documents converted between converter restarts (0 = derive from memory)")
	rootCmd.Flags().String("converter-binary", "", "Path to the LibreOffice soffice binary (default: auto-detect)")

	rootCmd.Flags().String("log-file", "pdfbatch.log", "Structured log file path (empty disables file logging)")
	rootCmd.Flags().Bool("no-progress", false, "Disable the progress bar even on a terminal")
}
