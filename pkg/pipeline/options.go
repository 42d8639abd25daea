package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/language"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/mapping"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/pdftext"
)

// Converter turns a Word document into a PDF using external tooling.
// Implementations must be safe for concurrent use by multiple workers.
type Converter interface {
	// Convert produces outputPath from inputPath. The file at outputPath
	// must not exist beforehand; Convert must never overwrite.
	Convert(ctx context.Context, inputPath, outputPath string) error

	// Reset returns the external tooling to a clean state, killing any
	// lingering converter processes. Called before each batch.
	Reset(ctx context.Context) error

	// Check reports whether conversion is possible on this host at all.
	// A failure wraps ErrCapability.
	Check() error
}

// Hooks receives progress events during a run. Implementations must be safe
// for concurrent use; workers report status from multiple goroutines.
// Errors returned from hooks are logged and otherwise ignored.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks is the default Hooks implementation; it does nothing.
type NoOpHooks struct{}

func (NoOpHooks) OnFileDiscovered(string) error { return nil }

func (NoOpHooks) OnFileStatusUpdate(string, Status, string, time.Duration) error { return nil }

func (NoOpHooks) OnRunComplete(Report) error { return nil }

// Options configures a pipeline run. InputPath, OutputPath and Converter are
// required; zero values elsewhere select documented defaults.
type Options struct {
	// InputPath is the root directory scanned for input documents.
	InputPath string
	// OutputPath is the root directory the output tree is built under,
	// mirroring the input's relative structure.
	OutputPath string

	// Rename controls identifier-based renaming. When false, outputs keep
	// the source document's stem and no extraction or classification runs.
	Rename bool

	// Countries maps project identifiers to country names for filename
	// enrichment and the reconciliation pass. May be nil.
	Countries mapping.Table

	// Concurrency is the worker pool size. Zero selects a value derived
	// from the host CPU count.
	Concurrency int
	// BatchSize is the number of conversions between converter resets.
	// Zero selects a value derived from system memory.
	BatchSize int

	// IdentifierPages caps how many pages are scanned for an identifier.
	IdentifierPages int
	// LanguagePages caps how many pages feed the language sample.
	LanguagePages int

	Converter  Converter
	Extractor  pdftext.Extractor
	Classifier language.Classifier

	// EventHooks receives progress callbacks. Nil selects NoOpHooks.
	EventHooks Hooks
	// Logger is the slog handler all pipeline components log through.
	// Nil discards logs.
	Logger slog.Handler
}

const (
	defaultIdentifierPages = 10
	defaultLanguagePages   = 3
)

// setDefaults fills zero-valued optional fields in place.
func (o *Options) setDefaults() {
	if o.EventHooks == nil {
		o.EventHooks = NoOpHooks{}
	}
	if o.Logger == nil {
		o.Logger = slog.NewTextHandler(io.Discard, nil)
	}
	if o.Extractor == nil {
		o.Extractor = pdftext.NewExtractor()
	}
	if o.Classifier == nil && o.Rename {
		o.Classifier = language.NewLinguaClassifier(o.Logger)
	}
	if o.IdentifierPages <= 0 {
		o.IdentifierPages = defaultIdentifierPages
	}
	if o.LanguagePages <= 0 {
		o.LanguagePages = defaultLanguagePages
	}
}
