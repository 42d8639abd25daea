// Package cli wires the configured dependencies into a pipeline run and
// renders the final summary.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectdocs/pdfbatch/internal/cli/config"
	"github.com/projectdocs/pdfbatch/internal/cli/hooks"
	"github.com/projectdocs/pdfbatch/internal/cli/office"
	"github.com/projectdocs/pdfbatch/internal/cli/prompt"
	"github.com/projectdocs/pdfbatch/pkg/pipeline"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/language"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/mapping"
)

// Run assembles the converter, mapping table, classifier and hooks from the
// validated configuration and executes the pipeline. Per-file failures are
// reported in the summary and do not produce a non-nil return; only fatal
// conditions (capability, validation, cancellation) do.
func Run(ctx context.Context, cfg config.Config, handler slog.Handler, stdout io.Writer) error {
	logger := slog.New(handler).With(slog.String("component", "cli"))

	countries := loadCountries(cfg, handler, logger, stdout)

	adapter, err := office.New(handler, office.Config{
		Binary:  cfg.Converter.Binary,
		Retries: cfg.Converter.Retries,
		Backoff: time.Duration(cfg.Converter.BackoffSeconds) * time.Second,
		Settle:  time.Duration(cfg.Converter.SettleSeconds) * time.Second,
		Timeout: time.Duration(cfg.Converter.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	if err := adapter.Check(); err != nil {
		return err
	}

	var bar hooks.ProgressBar
	if !cfg.NoProgress && prompt.Interactive() {
		bar = hooks.NewBar(-1)
	}
	eventHooks := hooks.NewCLIHooks(slog.New(handler).With(slog.String("component", "hooks")), bar, cfg.Verbose)

	var classifier language.Classifier
	if cfg.Rename {
		classifier = language.NewLinguaClassifier(handler)
	}

	engine, err := pipeline.NewEngine(ctx, pipeline.Options{
		InputPath:       cfg.Input,
		OutputPath:      cfg.Output,
		Rename:          cfg.Rename,
		Countries:       countries,
		Concurrency:     cfg.Concurrency,
		BatchSize:       cfg.BatchSize,
		IdentifierPages: cfg.IdentifierPages,
		LanguagePages:   cfg.LanguagePages,
		Converter:       adapter,
		Classifier:      classifier,
		EventHooks:      eventHooks,
		Logger:          handler,
	})
	if err != nil {
		return err
	}

	report, err := engine.Run()
	printSummary(stdout, report)
	if err != nil {
		logger.Error("Run did not complete", slog.Any("error", err))
		return err
	}
	return nil
}

// loadCountries reads the mapping table, prompting for column selection on a
// terminal when none was configured. Load failures degrade the run to no
// country segments instead of aborting it.
func loadCountries(cfg config.Config, handler slog.Handler, logger *slog.Logger, stdout io.Writer) mapping.Table {
	if cfg.Mapping.Path == "" {
		return nil
	}

	idCol, countryCol := cfg.Mapping.IDColumn, cfg.Mapping.CountryColumn
	if idCol == "" && countryCol == "" && prompt.Interactive() {
		if header, err := mapping.Columns(cfg.Mapping.Path); err == nil {
			reader := bufio.NewReader(os.Stdin)
			if id, country, perr := prompt.Columns(reader, stdout, header); perr == nil {
				idCol, countryCol = id, country
			}
		}
	}

	table, err := mapping.Load(cfg.Mapping.Path, idCol, countryCol, handler)
	if err != nil {
		logger.Warn("Country mapping unavailable, filenames will omit countries",
			slog.Any("error", fmt.Errorf("%w: %w", pipeline.ErrMappingLoad, err)))
		fmt.Fprintf(stdout, "Warning: could not load mapping file %s; continuing without country names.\n", cfg.Mapping.Path)
		return nil
	}
	return table
}

// countPDFs recounts the PDFs actually present under root, as an
// independent cross-check against the run counters.
func countPDFs(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			count++
		}
		return nil
	})
	return count, err
}

// printSummary renders the run report for humans. The full report is also
// in the log file as structured records.
func printSummary(w io.Writer, report pipeline.Report) {
	s := report.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run summary")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "  Word documents found:  %d\n", s.WordDocuments)
	fmt.Fprintf(w, "  PDFs found:            %d\n", s.PDFDocuments)
	fmt.Fprintf(w, "  Converted:             %d\n", s.ConvertedCount)
	fmt.Fprintf(w, "  Copied:                %d\n", s.CopiedCount)
	fmt.Fprintf(w, "  Renamed by identifier: %d\n", s.RenamedCount)
	fmt.Fprintf(w, "  Without identifier:    %d\n", s.NoIdentifierCount)
	fmt.Fprintf(w, "  Failed:                %d\n", s.FailedCount)
	if s.ReconciledCount > 0 {
		fmt.Fprintf(w, "  Countries reconciled:  %d\n", s.ReconciledCount)
	}
	fmt.Fprintf(w, "  Success rate:          %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "  Duration:              %.1fs\n", s.DurationSeconds)
	if s.DurationSeconds > 0 {
		total := s.ConvertedCount + s.CopiedCount + s.FailedCount
		fmt.Fprintf(w, "  Throughput:            %.2f files/s\n", float64(total)/s.DurationSeconds)
	}
	if n, err := countPDFs(s.OutputPath); err == nil {
		fmt.Fprintf(w, "  PDFs in output tree:   %d\n", n)
	}

	if n := len(s.UniqueIdentifiers); n > 0 {
		shown := s.UniqueIdentifiers
		const maxShown = 20
		if n > maxShown {
			shown = shown[:maxShown]
		}
		fmt.Fprintf(w, "  Project identifiers:   %s", strings.Join(shown, ", "))
		if n > maxShown {
			fmt.Fprintf(w, " (+%d more)", n-maxShown)
		}
		fmt.Fprintln(w)
	}

	for _, e := range report.Errors {
		if e.Path != "" {
			fmt.Fprintf(w, "  Error: %s: %s\n", e.Path, e.Message)
		} else {
			fmt.Fprintf(w, "  Error: %s\n", e.Message)
		}
	}
	fmt.Fprintln(w)
}
