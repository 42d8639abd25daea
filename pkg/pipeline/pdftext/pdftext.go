// Package pdftext reads text out of PDF files for identifier extraction and
// language sampling, and performs the cheap validity check applied to every
// produced PDF before it is renamed.
package pdftext

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minValidSize is the smallest plausible size in bytes for a real PDF.
// Anything smaller is treated as a truncated or failed conversion artifact.
const minValidSize = 100

// Extractor pulls plain text from PDFs and verifies produced files.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Text returns the concatenated plain text of up to maxPages pages
	// (all pages when maxPages <= 0). Pages that cannot be decoded are
	// skipped rather than failing the whole document.
	Text(path string, maxPages int) (string, error)

	// Verify reports whether path looks like a structurally valid PDF.
	Verify(path string) error
}

type fileExtractor struct{}

// NewExtractor returns the default Extractor backed by ledongthuc/pdf.
func NewExtractor() Extractor {
	return fileExtractor{}
}

// Text implements the Extractor interface.
func (fileExtractor) Text(path string, maxPages int) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables
	// instead of returning an error. Contain that to this document.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Verify implements the Extractor interface. A file passes when it is at
// least minValidSize bytes and the PDF parser accepts its structure.
func (fileExtractor) Verify(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() < minValidSize {
		return fmt.Errorf("%s: implausibly small output (%d bytes)", path, info.Size())
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return fmt.Errorf("%s: no pages", path)
	}
	return nil
}
