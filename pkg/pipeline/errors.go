package pipeline

import "errors"

// Standard error values returned by the pipeline and its collaborators.
// Callers distinguish fatal conditions from per-file outcomes with errors.Is.
var (
	// ErrValidation indicates invalid or inconsistent run options. Fatal.
	ErrValidation = errors.New("invalid options provided")

	// ErrCapability indicates the external conversion tooling is missing or
	// unusable on this host. Fatal; nothing can be converted without it.
	ErrCapability = errors.New("conversion capability unavailable")

	// ErrConversion indicates a single document failed to convert after all
	// retry attempts. Recorded per file; the run continues.
	ErrConversion = errors.New("document conversion failed")

	// ErrExtraction indicates text could not be pulled out of a produced PDF.
	// Recorded per file; the document keeps its fallback name.
	ErrExtraction = errors.New("text extraction failed")

	// ErrRename indicates a filesystem rename failed. Recorded per file; the
	// document is left under its last valid name.
	ErrRename = errors.New("rename failed")

	// ErrMappingLoad indicates the country mapping spreadsheet could not be
	// read. The run degrades to no country segments rather than aborting.
	ErrMappingLoad = errors.New("country mapping load failed")
)
