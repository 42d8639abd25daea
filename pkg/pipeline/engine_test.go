package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdocs/pdfbatch/internal/testutil"
	"github.com/projectdocs/pdfbatch/pkg/pipeline"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/language"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/mapping"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// baseOptions returns deterministic single-worker options with fake
// dependencies wired in.
func baseOptions(t *testing.T, conv *testutil.FakeConverter) pipeline.Options {
	t.Helper()
	return pipeline.Options{
		InputPath:   filepath.Join(t.TempDir(), "in"),
		OutputPath:  filepath.Join(t.TempDir(), "out"),
		Rename:      true,
		Concurrency: 1,
		BatchSize:   50,
		Converter:   conv,
		Extractor:   testutil.FakeExtractor{},
		Classifier:  testutil.FakeClassifier{Default: language.TagNonEnglish},
		Logger:      slog.NewTextHandler(io.Discard, nil),
	}
}

func run(t *testing.T, opts pipeline.Options) pipeline.Report {
	t.Helper()
	engine, err := pipeline.NewEngine(context.Background(), opts)
	require.NoError(t, err)
	report, err := engine.Run()
	require.NoError(t, err)
	return report
}

func outputNames(t *testing.T, root string) []string {
	t.Helper()
	var names []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			names = append(names, d.Name())
		}
		return err
	}))
	return names
}

func TestRunRenamesByIdentifierCountryAndLanguage(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	input := writeInput(t, opts.InputPath, "appraisal.docx",
		"Project Appraisal Document P654321 for the proposed operation")
	conv.Texts = map[string]string{input: "Report P654321 body in ENGLISH-MARKER text"}
	opts.Countries = mapping.Table{"P654321": "Kenya"}
	opts.Classifier = testutil.FakeClassifier{
		Markers: map[string]language.Tag{"ENGLISH-MARKER": language.TagEnglish},
	}

	report := run(t, opts)

	assert.FileExists(t, filepath.Join(opts.OutputPath, "P654321_Kenya_EN.pdf"))
	assert.Equal(t, 1, report.Summary.WordDocuments)
	assert.Equal(t, 1, report.Summary.ConvertedCount)
	assert.Equal(t, 1, report.Summary.RenamedCount)
	assert.Equal(t, 0, report.Summary.FailedCount)
	assert.Equal(t, []string{"P654321"}, report.Summary.UniqueIdentifiers)

	require.Len(t, report.Files, 1)
	result := report.Files[0]
	assert.Equal(t, pipeline.StatusRenamed, result.Status)
	assert.Equal(t, "P654321", result.ProjectID)
	assert.Equal(t, "Kenya", result.Country)
	assert.Equal(t, language.TagEnglish, result.Language)
}

func TestRunDisambiguatesDuplicateIdentifiers(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	a := writeInput(t, opts.InputPath, "first.docx", "x")
	b := writeInput(t, opts.InputPath, "second.docx", "x")
	conv.Texts = map[string]string{
		a: "appraisal P111111 original",
		b: "appraisal P111111 revision",
	}

	report := run(t, opts)

	names := outputNames(t, opts.OutputPath)
	assert.ElementsMatch(t, []string{"P111111_NON.pdf", "P111111_NON_01.pdf"}, names)
	assert.Equal(t, 2, report.Summary.RenamedCount)
	assert.Equal(t, []string{"P111111"}, report.Summary.UniqueIdentifiers)
}

func TestRunWithMultipleWorkersSharesOutputDirectory(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	opts.Concurrency = 4
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	conv.Texts = map[string]string{}
	var want []string
	for i := 0; i < 12; i++ {
		pid := fmt.Sprintf("P70%04d", i)
		input := writeInput(t, opts.InputPath, fmt.Sprintf("doc%02d.docx", i), "x")
		conv.Texts[input] = "appraisal document " + pid
		want = append(want, pid+"_NON.pdf")
	}

	report := run(t, opts)

	assert.ElementsMatch(t, want, outputNames(t, opts.OutputPath))
	assert.Equal(t, 12, report.Summary.ConvertedCount)
	assert.Equal(t, 12, report.Summary.RenamedCount)
	assert.Equal(t, 0, report.Summary.FailedCount)
	assert.Len(t, report.Summary.UniqueIdentifiers, 12)
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	good := writeInput(t, opts.InputPath, "good.docx", "x")
	bad := writeInput(t, opts.InputPath, "bad.docx", "x")
	conv.Texts = map[string]string{good: "document P222222"}
	conv.FailPaths = map[string]bool{bad: true}

	report := run(t, opts)

	assert.Equal(t, 1, report.Summary.ConvertedCount)
	assert.Equal(t, 1, report.Summary.FailedCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, bad, report.Errors[0].Path)

	// The failed document must leave nothing behind in the output tree.
	assert.Equal(t, []string{"P222222_NON.pdf"}, outputNames(t, opts.OutputPath))
}

func TestRunCopiesExistingPDFs(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	input := writeInput(t, opts.InputPath, "scan.pdf", "archived report P333333 text")
	opts.Countries = mapping.Table{"P333333": "Chad"}

	report := run(t, opts)

	assert.FileExists(t, filepath.Join(opts.OutputPath, "P333333_Chad_NON.pdf"))
	assert.FileExists(t, input, "source PDF must not be moved")
	assert.Empty(t, conv.Converted)
	assert.Equal(t, 1, report.Summary.CopiedCount)
	assert.Equal(t, 0, report.Summary.ConvertedCount)
}

func TestRunWithoutRenameKeepsStem(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	opts.Rename = false
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	input := writeInput(t, opts.InputPath, "appraisal.docx", "x")
	conv.Texts = map[string]string{input: "document P654321"}

	report := run(t, opts)

	assert.Equal(t, []string{"appraisal.pdf"}, outputNames(t, opts.OutputPath))
	assert.Equal(t, 0, report.Summary.RenamedCount)
}

func TestRunMirrorsSubdirectories(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	input := writeInput(t, opts.InputPath, filepath.Join("region", "east", "doc.docx"), "x")
	conv.Texts = map[string]string{input: "document P444444"}

	run(t, opts)

	assert.FileExists(t, filepath.Join(opts.OutputPath, "region", "east", "P444444_NON.pdf"))
}

func TestRunResetsConverterPerBatch(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	opts.BatchSize = 2
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	for _, name := range []string{"a.docx", "b.docx", "c.docx", "d.docx", "e.docx"} {
		writeInput(t, opts.InputPath, name, "x")
	}

	run(t, opts)

	// Five documents in batches of two: three batches, one reset each.
	assert.Equal(t, 3, conv.Resets)
}

func TestRunSkipsLockFilesAndUnknownTypes(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	writeInput(t, opts.InputPath, "~$appraisal.docx", "lock")
	writeInput(t, opts.InputPath, "notes.txt", "text")
	real := writeInput(t, opts.InputPath, "real.docx", "x")
	conv.Texts = map[string]string{real: "document P555555"}

	report := run(t, opts)

	assert.Equal(t, 1, report.Summary.WordDocuments)
	assert.Equal(t, []string{"P555555_NON.pdf"}, outputNames(t, opts.OutputPath))
}

func TestRunFallsBackToFilenameIdentifier(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	// Content carries no identifier; the filename prefix does.
	writeInput(t, opts.InputPath, "P666666_appraisal.docx", "x")

	report := run(t, opts)

	assert.FileExists(t, filepath.Join(opts.OutputPath, "P666666_NON.pdf"))
	assert.Equal(t, 1, report.Summary.RenamedCount)
}

func TestRunWithoutIdentifierKeepsStem(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))

	writeInput(t, opts.InputPath, "memo.docx", "x")

	report := run(t, opts)

	assert.Equal(t, []string{"memo.pdf"}, outputNames(t, opts.OutputPath))
	assert.Equal(t, 1, report.Summary.NoIdentifierCount)
	assert.Equal(t, 0, report.Summary.RenamedCount)
}

func TestNewEngineValidation(t *testing.T) {
	logger := slog.NewTextHandler(io.Discard, nil)

	t.Run("missing input", func(t *testing.T) {
		_, err := pipeline.NewEngine(context.Background(), pipeline.Options{
			InputPath:  filepath.Join(t.TempDir(), "does-not-exist"),
			OutputPath: t.TempDir(),
			Converter:  &testutil.FakeConverter{},
			Logger:     logger,
		})
		assert.ErrorIs(t, err, pipeline.ErrValidation)
	})

	t.Run("missing converter", func(t *testing.T) {
		_, err := pipeline.NewEngine(context.Background(), pipeline.Options{
			InputPath:  t.TempDir(),
			OutputPath: t.TempDir(),
			Logger:     logger,
		})
		assert.ErrorIs(t, err, pipeline.ErrValidation)
	})

	t.Run("empty paths", func(t *testing.T) {
		_, err := pipeline.NewEngine(context.Background(), pipeline.Options{
			Converter: &testutil.FakeConverter{},
			Logger:    logger,
		})
		assert.ErrorIs(t, err, pipeline.ErrValidation)
	})
}

func TestRunCancelledContext(t *testing.T) {
	conv := &testutil.FakeConverter{}
	opts := baseOptions(t, conv)
	require.NoError(t, os.MkdirAll(opts.InputPath, 0o755))
	writeInput(t, opts.InputPath, "a.docx", "x")

	ctx, cancel := context.WithCancel(context.Background())
	engine, err := pipeline.NewEngine(ctx, opts)
	require.NoError(t, err)
	cancel()

	_, err = engine.Run()
	assert.ErrorIs(t, err, context.Canceled)
}
