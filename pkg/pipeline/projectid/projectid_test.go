package projectid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/projectid"
)

func TestFromText(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"plain identifier", "Project Appraisal Document P654321 Annex", "P654321"},
		{"first of several wins", "P111111 supersedes P222222", "P111111"},
		{"ocr letter O normalized", "Report for PO12345 fiscal year", "P012345"},
		{"all O digits", "POOOOOO", "P000000"},
		{"no identifier", "no project reference here", ""},
		{"too few digits", "P12345 is not enough", ""},
		{"empty text", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, projectid.FromText(tc.text))
		})
	}
}

func TestFromFilename(t *testing.T) {
	testCases := []struct {
		name     string
		filename string
		expected string
	}{
		{"underscore separator", "P123456_appraisal.docx", "P123456"},
		{"dash separator", "P123456-final.doc", "P123456"},
		{"no separator", "P123456.docx", ""},
		{"longer digit run", "P1234567_report.docx", ""},
		{"letter O not accepted from filenames", "PO12345_report.docx", ""},
		{"no identifier", "appraisal.docx", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, projectid.FromFilename(tc.filename))
		})
	}
}

func TestFromName(t *testing.T) {
	assert.Equal(t, "P654321", projectid.FromName("P654321_Kenya_EN.pdf"))
	assert.Equal(t, "P654321", projectid.FromName("P654321.pdf"))
	assert.Equal(t, "", projectid.FromName("report.pdf"))
}
