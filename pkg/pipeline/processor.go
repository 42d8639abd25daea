package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/language"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/naming"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/projectid"
)

// fileProcessor runs the full per-document pipeline: convert or copy,
// verify, extract the identifier, classify language, and apply the final
// rename. One instance is shared by all workers; it holds no per-document
// state.
type fileProcessor struct {
	opts   *Options
	logger *slog.Logger
}

func newFileProcessor(opts *Options) *fileProcessor {
	return &fileProcessor{
		opts:   opts,
		logger: slog.New(opts.Logger).With(slog.String("component", "processor")),
	}
}

// process handles a single document and returns its Result. Per-file
// failures are captured in the Result; process itself never returns an
// error so one bad document cannot stop the pool.
func (p *fileProcessor) process(ctx context.Context, task Task) Result {
	start := time.Now()
	logger := p.logger.With(slog.String("path", task.InputPath))
	result := Result{InputPath: task.InputPath, Converted: task.Convert}
	defer func() {
		result.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	targetDir, err := p.targetDir(task.InputPath)
	if err != nil {
		return p.fail(result, logger, fmt.Errorf("preparing output directory: %w", err))
	}

	stem := strings.TrimSuffix(filepath.Base(task.InputPath), filepath.Ext(task.InputPath))
	outputPath := naming.Resolve(targetDir, stem+".pdf")

	if task.Convert {
		if err := p.opts.Converter.Convert(ctx, task.InputPath, outputPath); err != nil {
			p.discardPartial(outputPath, logger)
			return p.fail(result, logger, fmt.Errorf("%w: %w", ErrConversion, err))
		}
		if err := p.opts.Extractor.Verify(outputPath); err != nil {
			p.discardPartial(outputPath, logger)
			return p.fail(result, logger, fmt.Errorf("%w: produced file failed verification: %w", ErrConversion, err))
		}
		result.Status = StatusConverted
	} else {
		if err := copyFile(task.InputPath, outputPath); err != nil {
			p.discardPartial(outputPath, logger)
			return p.fail(result, logger, fmt.Errorf("copying existing PDF: %w", err))
		}
		result.Status = StatusCopied
	}
	result.OutputPath = outputPath

	if !p.opts.Rename {
		return result
	}
	return p.rename(result, targetDir, logger)
}

// rename applies the two-stage renaming: first to the bare identifier, then
// to the identifier plus country and language segments. Rename failures are
// recorded but leave the document under its last valid name.
func (p *fileProcessor) rename(result Result, targetDir string, logger *slog.Logger) Result {
	pid := p.extractIdentifier(result, logger)
	if pid == "" {
		logger.Info("No project identifier found, keeping original name",
			slog.String("output", result.OutputPath))
		return result
	}
	result.ProjectID = pid

	basePath := naming.Resolve(targetDir, pid+".pdf")
	if err := os.Rename(result.OutputPath, basePath); err != nil {
		result.Error = fmt.Sprintf("%v: %v", ErrRename, err)
		logger.Warn("Could not rename to identifier", slog.String("projectId", pid), slog.Any("error", err))
		return result
	}
	result.OutputPath = basePath

	result.Language = p.classify(basePath, logger)
	result.Country = p.opts.Countries[pid]

	finalPath := naming.Resolve(targetDir, naming.Compose(pid, result.Country, string(result.Language)))
	if err := os.Rename(basePath, finalPath); err != nil {
		result.Error = fmt.Sprintf("%v: %v", ErrRename, err)
		logger.Warn("Could not apply final name", slog.String("target", finalPath), slog.Any("error", err))
		return result
	}
	result.OutputPath = finalPath
	result.Status = StatusRenamed

	logger.Debug("Renamed document",
		slog.String("projectId", pid),
		slog.String("country", result.Country),
		slog.String("language", string(result.Language)),
		slog.String("output", finalPath))
	return result
}

// extractIdentifier scans the produced PDF's text, falling back to the
// source filename. Extraction failures degrade to the filename fallback.
func (p *fileProcessor) extractIdentifier(result Result, logger *slog.Logger) string {
	text, err := p.opts.Extractor.Text(result.OutputPath, p.opts.IdentifierPages)
	if err != nil {
		logger.Warn("Text extraction failed, falling back to filename",
			slog.Any("error", fmt.Errorf("%w: %w", ErrExtraction, err)))
	} else if pid := projectid.FromText(text); pid != "" {
		return pid
	}
	return projectid.FromFilename(filepath.Base(result.InputPath))
}

func (p *fileProcessor) classify(path string, logger *slog.Logger) language.Tag {
	sample, err := p.opts.Extractor.Text(path, p.opts.LanguagePages)
	if err != nil {
		logger.Warn("Language sampling failed, tagging non-English", slog.Any("error", err))
		return language.TagNonEnglish
	}
	return p.opts.Classifier.Classify(sample)
}

// targetDir mirrors the input's relative directory under the output root.
func (p *fileProcessor) targetDir(inputPath string) (string, error) {
	rel, err := filepath.Rel(p.opts.InputPath, inputPath)
	if err != nil {
		rel = filepath.Base(inputPath)
	}
	dir := filepath.Join(p.opts.OutputPath, filepath.Dir(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (p *fileProcessor) fail(result Result, logger *slog.Logger, err error) Result {
	result.Status = StatusFailed
	result.Error = err.Error()
	logger.Error("Document processing failed", slog.Any("error", err))
	return result
}

// discardPartial removes a partial or invalid output so a broken file can
// never survive into the renamed output tree.
func (p *fileProcessor) discardPartial(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not remove partial output", slog.String("path", path), slog.Any("error", err))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
