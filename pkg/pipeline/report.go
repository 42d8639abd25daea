package pipeline

import (
	"sort"
	"sync"
	"time"
)

// ReportSummary aggregates run-level counters and settings.
type ReportSummary struct {
	Timestamp  string `json:"timestamp"`
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath"`

	WordDocuments int `json:"wordDocuments"`
	PDFDocuments  int `json:"pdfDocuments"`

	ConvertedCount    int `json:"convertedCount"`
	CopiedCount       int `json:"copiedCount"`
	RenamedCount      int `json:"renamedCount"`
	NoIdentifierCount int `json:"noIdentifierCount"`
	FailedCount       int `json:"failedCount"`
	ReconciledCount   int `json:"reconciledCount"`

	// UniqueIdentifiers lists every distinct project identifier seen during
	// the run, sorted.
	UniqueIdentifiers []string `json:"uniqueIdentifiers,omitempty"`

	Concurrency     int     `json:"concurrency"`
	BatchSize       int     `json:"batchSize"`
	DurationSeconds float64 `json:"durationSeconds"`
	// SuccessRate is successful outcomes over total documents, in percent.
	SuccessRate float64 `json:"successRate"`
}

// Report is the final outcome of a pipeline run.
type Report struct {
	Summary ReportSummary `json:"summary"`
	Files   []Result      `json:"files"`
	Errors  []ErrorInfo   `json:"errors,omitempty"`
}

// reportAggregator collects worker results under a mutex. Workers call the
// add methods concurrently; getReport is called once after the pool drains.
type reportAggregator struct {
	mu         sync.Mutex
	files      []Result
	errors     []ErrorInfo
	idSet      map[string]struct{}
	reconciled int
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{idSet: make(map[string]struct{})}
}

func (a *reportAggregator) addResult(r Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = append(a.files, r)
	if r.ProjectID != "" {
		a.idSet[r.ProjectID] = struct{}{}
	}
	if r.Error != "" {
		a.errors = append(a.errors, ErrorInfo{Path: r.InputPath, Message: r.Error})
	}
}

func (a *reportAggregator) addError(e ErrorInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, e)
}

func (a *reportAggregator) setReconciled(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconciled = n
}

// getReport assembles the final Report. Not safe to call while workers are
// still producing results.
func (a *reportAggregator) getReport(opts *Options, wordDocs, pdfDocs int, elapsed time.Duration) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := ReportSummary{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		InputPath:       opts.InputPath,
		OutputPath:      opts.OutputPath,
		WordDocuments:   wordDocs,
		PDFDocuments:    pdfDocs,
		ReconciledCount: a.reconciled,
		Concurrency:     opts.Concurrency,
		BatchSize:       opts.BatchSize,
		DurationSeconds: elapsed.Seconds(),
	}

	succeeded := 0
	for _, f := range a.files {
		if f.Status == StatusFailed {
			summary.FailedCount++
			continue
		}
		if f.Converted {
			summary.ConvertedCount++
		} else {
			summary.CopiedCount++
		}
		succeeded++
		if f.ProjectID != "" {
			summary.RenamedCount++
		} else if opts.Rename {
			summary.NoIdentifierCount++
		}
	}
	if total := len(a.files); total > 0 {
		summary.SuccessRate = float64(succeeded) / float64(total) * 100
	}

	summary.UniqueIdentifiers = make([]string, 0, len(a.idSet))
	for id := range a.idSet {
		summary.UniqueIdentifiers = append(summary.UniqueIdentifiers, id)
	}
	sort.Strings(summary.UniqueIdentifiers)

	sort.Slice(a.files, func(i, j int) bool { return a.files[i].InputPath < a.files[j].InputPath })

	return Report{Summary: summary, Files: a.files, Errors: a.errors}
}
