// Package testutil provides mock and fake implementations of the pipeline
// interfaces for tests in this module.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/projectdocs/pdfbatch/pkg/pipeline"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/language"
)

// MockConverter is a testify mock of the pipeline.Converter interface.
// Configure expectations with .On("Convert", ...).Return(...).
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	args := m.Called(ctx, inputPath, outputPath)
	return args.Error(0)
}

func (m *MockConverter) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockConverter) Check() error {
	args := m.Called()
	return args.Error(0)
}

// MockHooks is a testify mock of the pipeline.Hooks interface.
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status pipeline.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report pipeline.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// FakeConverter implements pipeline.Converter by writing the text registered
// for the input path as the output file's content. Paired with FakeExtractor
// it lets pipeline tests script exactly what "conversion" produces without
// external tooling. Inputs listed in FailPaths fail instead.
type FakeConverter struct {
	mu sync.Mutex
	// Texts maps an input path to the content its "converted" output gets.
	// Missing entries produce a generic placeholder.
	Texts map[string]string
	// FailPaths lists input paths whose conversion fails.
	FailPaths map[string]bool

	Converted []string
	Resets    int
}

func (f *FakeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailPaths[inputPath] {
		return fmt.Errorf("simulated converter failure for %s", inputPath)
	}
	content, ok := f.Texts[inputPath]
	if !ok {
		content = "placeholder document body with no identifier"
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return err
	}
	f.Converted = append(f.Converted, inputPath)
	return nil
}

func (f *FakeConverter) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resets++
	return nil
}

func (f *FakeConverter) Check() error { return nil }

// FakeExtractor implements pdftext.Extractor by returning the file's raw
// content as its "text". Verification always passes.
type FakeExtractor struct{}

func (FakeExtractor) Text(path string, maxPages int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (FakeExtractor) Verify(path string) error {
	_, err := os.Stat(path)
	return err
}

// FakeClassifier implements language.Classifier with a fixed answer per
// marker substring; samples matching no marker get the Default tag.
type FakeClassifier struct {
	// Markers maps a substring to the tag returned when the sample
	// contains it.
	Markers map[string]language.Tag
	Default language.Tag
}

func (f FakeClassifier) Classify(sample string) language.Tag {
	for marker, tag := range f.Markers {
		if marker != "" && strings.Contains(sample, marker) {
			return tag
		}
	}
	if f.Default == "" {
		return language.TagNonEnglish
	}
	return f.Default
}
