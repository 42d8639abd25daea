package pipeline

import "github.com/projectdocs/pdfbatch/pkg/pipeline/language"

// Status represents the terminal state of a single document within a run.
type Status string

// Document status values reported through Hooks and the final Report.
const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusConverted  Status = "converted"
	StatusCopied     Status = "copied"
	StatusRenamed    Status = "renamed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Task describes one input document queued for a worker.
type Task struct {
	// InputPath is the absolute path of the source document.
	InputPath string
	// Convert is true for Word documents that need an external conversion.
	// False means the input is already a PDF and is copied into the output
	// tree instead.
	Convert bool
}

// Result captures the outcome of processing a single document. Exactly one
// Result is produced per Task; workers never share or reuse Result values.
type Result struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath,omitempty"`
	Status     Status `json:"status"`

	// ProjectID is the normalized identifier (P followed by six digits), or
	// empty when none was found in the document or its filename.
	ProjectID string       `json:"projectId,omitempty"`
	Country   string       `json:"country,omitempty"`
	Language  language.Tag `json:"language,omitempty"`

	// Converted is true when an external conversion ran (as opposed to a
	// plain copy of an existing PDF).
	Converted  bool    `json:"converted"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// ErrorInfo describes an error encountered during the run, suitable for
// inclusion in the final Report.
type ErrorInfo struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	IsFatal bool   `json:"isFatal"`
}
