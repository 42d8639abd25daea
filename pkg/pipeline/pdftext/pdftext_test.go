package pdftext_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/pdftext"
)

func TestVerifyRejectsMissingFile(t *testing.T) {
	e := pdftext.NewExtractor()
	assert.Error(t, e.Verify(filepath.Join(t.TempDir(), "missing.pdf")))
}

func TestVerifyRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	e := pdftext.NewExtractor()
	assert.Error(t, e.Verify(path))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a pdf "), 50), 0o644))

	e := pdftext.NewExtractor()
	assert.Error(t, e.Verify(path))
}

func TestTextRejectsMissingFile(t *testing.T) {
	e := pdftext.NewExtractor()
	_, err := e.Text(filepath.Join(t.TempDir(), "missing.pdf"), 10)
	assert.Error(t, err)
}
