// Package mapping loads the project-to-country table used to enrich output
// filenames. Sources are spreadsheets (.xlsx, .xlsm) or delimited text
// (.csv); legacy binary .xls workbooks are rejected.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat is returned for mapping files in a format the loader
// cannot read, such as legacy binary .xls workbooks.
var ErrUnsupportedFormat = errors.New("unsupported mapping file format")

// Table maps a normalized project identifier to its country name.
type Table map[string]string

var (
	idPattern     = regexp.MustCompile(`^P\d{6}$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
	idCleanup     = regexp.MustCompile(`[^P0-9]`)
)

// Columns returns the header row of the mapping file so a caller can offer
// column selection interactively.
func Columns(path string) ([]string, error) {
	rows, err := loadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: mapping file is empty", path)
	}
	return rows[0], nil
}

// Load reads the mapping file at path and returns the identifier-to-country
// table. idColumn and countryColumn select columns either by header name
// (case-insensitive) or by zero-based index; empty values default to the
// first and second columns. Rows whose identifier does not normalize to the
// canonical form are skipped with a debug log rather than failing the load.
func Load(path, idColumn, countryColumn string, handler slog.Handler) (Table, error) {
	logger := slog.New(handler).With(slog.String("component", "mapping"))

	rows, err := loadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: mapping file has no data rows", path)
	}

	header := rows[0]
	idIdx, err := resolveColumn(header, idColumn, 0)
	if err != nil {
		return nil, fmt.Errorf("identifier column: %w", err)
	}
	countryIdx, err := resolveColumn(header, countryColumn, 1)
	if err != nil {
		return nil, fmt.Errorf("country column: %w", err)
	}

	table := make(Table)
	skipped := 0
	for _, row := range rows[1:] {
		if idIdx >= len(row) || countryIdx >= len(row) {
			skipped++
			continue
		}
		id := normalizeID(row[idIdx])
		country := strings.TrimSpace(row[countryIdx])
		if id == "" || country == "" {
			skipped++
			continue
		}
		table[id] = country
	}

	logger.Info("Loaded country mapping",
		slog.String("path", path),
		slog.Int("entries", len(table)),
		slog.Int("skippedRows", skipped))
	return table, nil
}

// normalizeID coerces a raw spreadsheet cell into canonical identifier form.
// Bare digit runs gain the P prefix (spreadsheets often strip it), stray
// characters are removed, and the result must match P followed by exactly
// six digits.
func normalizeID(cell string) string {
	id := idCleanup.ReplaceAllString(strings.ToUpper(strings.TrimSpace(cell)), "")
	if digitsPattern.MatchString(id) {
		id = "P" + id
	}
	if !idPattern.MatchString(id) {
		return ""
	}
	return id
}

func resolveColumn(header []string, selector string, fallback int) (int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		if fallback >= len(header) {
			return 0, fmt.Errorf("default column %d out of range (%d columns)", fallback, len(header))
		}
		return fallback, nil
	}
	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(header) {
			return 0, fmt.Errorf("column index %d out of range (%d columns)", idx, len(header))
		}
		return idx, nil
	}
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), selector) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no column named %q", selector)
}

func loadRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadWorkbook(path)
	case ".csv":
		return loadCSV(path)
	case ".xls":
		return nil, fmt.Errorf("%w: %s (save as .xlsx or .csv)", ErrUnsupportedFormat, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func loadWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

// loadCSV reads a delimited text file, sniffing the character encoding so
// exports from locale-configured spreadsheet tools decode correctly.
func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", path, err)
	}

	enc, _, _ := charset.DetermineEncoding(head[:n], "text/csv")
	reader := csv.NewReader(transform.NewReader(f, enc.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}
