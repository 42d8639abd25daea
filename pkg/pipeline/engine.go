// Package pipeline implements the batch document pipeline: Word documents
// are converted to PDF through an injected Converter, existing PDFs are
// copied, and every produced file is renamed after its extracted project
// identifier, country and language before a final reconciliation pass.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/projectdocs/pdfbatch/pkg/util"
)

// Engine orchestrates a single run. Create one with NewEngine and call Run
// exactly once.
type Engine struct {
	ctx        context.Context
	opts       Options
	logger     *slog.Logger
	aggregator *reportAggregator
	processor  *fileProcessor
}

// NewEngine validates opts, applies defaults, and returns an Engine ready to
// run. Validation failures wrap ErrValidation.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.setDefaults()

	if opts.InputPath == "" || opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: input and output paths are required", ErrValidation)
	}
	if opts.Converter == nil {
		return nil, fmt.Errorf("%w: a Converter implementation is required", ErrValidation)
	}
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: input path %s: %w", ErrValidation, opts.InputPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: input path %s is not a directory", ErrValidation, opts.InputPath)
	}
	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output path %s: %w", ErrValidation, opts.OutputPath, err)
	}

	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))
	if opts.Concurrency <= 0 {
		opts.Concurrency = util.OptimalWorkers()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = util.OptimalBatchSize(logger)
	}

	e := &Engine{
		ctx:        ctx,
		opts:       opts,
		logger:     logger,
		aggregator: newReportAggregator(),
	}
	e.processor = newFileProcessor(&e.opts)
	return e, nil
}

// Run executes the full pipeline and returns the final Report. Per-file
// failures are recorded in the Report, not returned; the error is non-nil
// only for cancellation or a failure that prevented the run itself.
func (e *Engine) Run() (Report, error) {
	start := time.Now()
	e.logger.Info("Starting run",
		slog.String("input", e.opts.InputPath),
		slog.String("output", e.opts.OutputPath),
		slog.Int("concurrency", e.opts.Concurrency),
		slog.Int("batchSize", e.opts.BatchSize))

	wordDocs, pdfDocs, err := discoverInputs(&e.opts, e.logger)
	if err != nil {
		return Report{}, err
	}

	batches := partition(wordDocs, e.opts.BatchSize)
	for i, batch := range batches {
		if e.ctx.Err() != nil {
			break
		}
		e.logger.Info("Starting conversion batch",
			slog.Int("batch", i+1), slog.Int("batches", len(batches)), slog.Int("documents", len(batch)))
		// A clean converter state at every batch boundary stops leaked
		// converter processes from accumulating across long runs.
		if err := e.opts.Converter.Reset(e.ctx); err != nil {
			e.logger.Warn("Converter reset failed, continuing", slog.Any("error", err))
		}
		e.runPool(batch, true)
	}
	if e.ctx.Err() == nil {
		e.runPool(pdfDocs, false)
	}

	if e.ctx.Err() == nil && e.opts.Rename && len(e.opts.Countries) > 0 {
		updated, rerr := Reconcile(e.ctx, e.opts.OutputPath, e.opts.Countries, e.opts.Logger)
		if rerr != nil {
			e.logger.Warn("Country reconciliation incomplete", slog.Any("error", rerr))
			e.aggregator.addError(ErrorInfo{Message: fmt.Sprintf("country reconciliation: %v", rerr)})
		}
		e.aggregator.setReconciled(updated)
	}

	report := e.aggregator.getReport(&e.opts, len(wordDocs), len(pdfDocs), time.Since(start))
	if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
		e.logger.Warn("OnRunComplete hook failed", slog.Any("error", hookErr))
	}
	e.logger.Info("Run complete",
		slog.Int("converted", report.Summary.ConvertedCount),
		slog.Int("copied", report.Summary.CopiedCount),
		slog.Int("failed", report.Summary.FailedCount),
		slog.Float64("durationSeconds", report.Summary.DurationSeconds))

	if cErr := e.ctx.Err(); cErr != nil {
		return report, fmt.Errorf("run cancelled: %w", cErr)
	}
	return report, nil
}

// runPool feeds files through a bounded worker pool and drains every result
// into the aggregator before returning. Batches therefore never overlap.
func (e *Engine) runPool(files []string, convert bool) {
	if len(files) == 0 {
		return
	}
	tasks := make(chan Task)
	results := make(chan Result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Concurrency; i++ {
		wg.Add(1)
		go e.worker(i, tasks, results, &wg)
	}

feed:
	for _, f := range files {
		select {
		case tasks <- Task{InputPath: f, Convert: convert}:
		case <-e.ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	close(results)

	for r := range results {
		e.aggregator.addResult(r)
	}
}

func (e *Engine) worker(id int, tasks <-chan Task, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := e.logger.With(slog.Int("worker", id))
	for task := range tasks {
		e.notify(task.InputPath, StatusConverting, "", 0)
		result := e.safeProcess(task, logger)
		e.notify(result.InputPath, result.Status, result.Error,
			time.Duration(result.DurationMs*float64(time.Millisecond)))
		results <- result
	}
}

// safeProcess contains panics from a single document so one pathological
// file cannot take down the pool.
func (e *Engine) safeProcess(task Task, logger *slog.Logger) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing document",
				slog.String("path", task.InputPath),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result = Result{
				InputPath: task.InputPath,
				Status:    StatusFailed,
				Converted: task.Convert,
				Error:     fmt.Sprintf("internal error: %v", r),
			}
		}
	}()
	return e.processor.process(e.ctx, task)
}

func (e *Engine) notify(path string, status Status, msg string, d time.Duration) {
	if err := e.opts.EventHooks.OnFileStatusUpdate(path, status, msg, d); err != nil {
		e.logger.Warn("Status hook failed", slog.String("path", path), slog.Any("error", err))
	}
}

// partition splits files into consecutive slices of at most size elements.
func partition(files []string, size int) [][]string {
	if len(files) == 0 {
		return nil
	}
	var batches [][]string
	for size < len(files) {
		batches = append(batches, files[:size])
		files = files[size:]
	}
	return append(batches, files)
}
