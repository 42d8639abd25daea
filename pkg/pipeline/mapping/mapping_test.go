package mapping_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/mapping"
)

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, name, cell))
		}
	}
	path := filepath.Join(t.TempDir(), "mapping.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "Project ID,Country\nP654321,Kenya\nP111111,South Africa\n")

	table, err := mapping.Load(path, "", "", discardHandler())
	require.NoError(t, err)
	assert.Equal(t, mapping.Table{
		"P654321": "Kenya",
		"P111111": "South Africa",
	}, table)
}

func TestLoadCSVSkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, "id,country\n"+
		"P654321,Kenya\n"+
		"notanid,France\n"+ // unparseable identifier
		"P111111,\n"+ // blank country
		"123456,Chad\n"+ // bare digits gain the P prefix
		"p222222,Brazil\n") // lowercase is accepted

	table, err := mapping.Load(path, "", "", discardHandler())
	require.NoError(t, err)
	assert.Equal(t, mapping.Table{
		"P654321": "Kenya",
		"P123456": "Chad",
		"P222222": "Brazil",
	}, table)
}

func TestLoadWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Region", "Project", "Country"},
		{"AFR", "P654321", "Kenya"},
		{"LCR", "P111111", "Brazil"},
	})

	table, err := mapping.Load(path, "Project", "Country", discardHandler())
	require.NoError(t, err)
	assert.Equal(t, mapping.Table{
		"P654321": "Kenya",
		"P111111": "Brazil",
	}, table)
}

func TestLoadColumnsByIndex(t *testing.T) {
	path := writeCSV(t, "a,b,c\nKenya,x,P654321\n")

	table, err := mapping.Load(path, "2", "0", discardHandler())
	require.NoError(t, err)
	assert.Equal(t, mapping.Table{"P654321": "Kenya"}, table)
}

func TestLoadUnknownColumn(t *testing.T) {
	path := writeCSV(t, "id,country\nP654321,Kenya\n")

	_, err := mapping.Load(path, "missing", "", discardHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestLoadLegacyWorkbookRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.xls")
	require.NoError(t, os.WriteFile(path, []byte("not a real workbook"), 0o644))

	_, err := mapping.Load(path, "", "", discardHandler())
	assert.ErrorIs(t, err, mapping.ErrUnsupportedFormat)
}

func TestColumns(t *testing.T) {
	path := writeCSV(t, "Project ID,Country,Region\nP654321,Kenya,AFR\n")

	header, err := mapping.Columns(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Project ID", "Country", "Region"}, header)
}
