// Package hooks bridges pipeline events to the CLI surface: a progress bar
// on interactive terminals and structured logs everywhere.
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	progressbar "github.com/schollz/progressbar/v3"

	"github.com/projectdocs/pdfbatch/pkg/pipeline"
)

// ProgressBar is the slice of schollz/progressbar the hooks need. The
// indirection keeps tests free of terminal output.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Close() error
}

// NoOpProgressBar is used when progress output is disabled.
type NoOpProgressBar struct{}

func (NoOpProgressBar) Add(int) error { return nil }

func (NoOpProgressBar) Describe(string) {}

func (NoOpProgressBar) Close() error { return nil }

// CLIHooks implements pipeline.Hooks. The pipeline calls status updates
// from multiple workers; the mutex serializes progress bar writes.
type CLIHooks struct {
	logger  *slog.Logger
	bar     ProgressBar
	verbose bool
	mu      sync.Mutex
}

// NewCLIHooks builds hooks around the given progress bar. Pass nil for bar
// to disable progress output.
func NewCLIHooks(logger *slog.Logger, bar ProgressBar, verbose bool) *CLIHooks {
	if bar == nil {
		bar = NoOpProgressBar{}
	}
	return &CLIHooks{logger: logger, bar: bar, verbose: verbose}
}

// NewBar returns a terminal progress bar sized for total documents.
func NewBar(total int) ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Converting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// OnFileDiscovered implements the pipeline.Hooks interface.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.verbose {
		h.logger.Debug("Discovered document", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate implements the pipeline.Hooks interface. Terminal
// statuses advance the bar; in-flight statuses update its label.
func (h *CLIHooks) OnFileStatusUpdate(path string, status pipeline.Status, message string, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch status {
	case pipeline.StatusConverting:
		h.bar.Describe(fmt.Sprintf("Converting %s", filepath.Base(path)))
	case pipeline.StatusConverted, pipeline.StatusCopied, pipeline.StatusRenamed, pipeline.StatusFailed, pipeline.StatusSkipped:
		if err := h.bar.Add(1); err != nil {
			h.logger.Debug("Progress bar update failed", slog.Any("error", err))
		}
		if status == pipeline.StatusFailed {
			h.logger.Warn("Document failed",
				slog.String("path", path), slog.String("reason", message))
		} else if h.verbose {
			h.logger.Debug("Document finished",
				slog.String("path", path),
				slog.String("status", string(status)),
				slog.Duration("duration", duration))
		}
	}
	return nil
}

// OnRunComplete implements the pipeline.Hooks interface.
func (h *CLIHooks) OnRunComplete(report pipeline.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.bar.Close(); err != nil {
		h.logger.Debug("Progress bar close failed", slog.Any("error", err))
	}
	return nil
}
