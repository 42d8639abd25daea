// Package projectid extracts and normalizes project identifiers of the form
// "P" followed by six digits. Identifiers are pulled from document text
// first, with the source filename as a fallback.
package projectid

import (
	"regexp"
	"strings"
)

var (
	// contentPattern matches identifiers in document text. OCR frequently
	// renders the digit 0 as the letter O, so O is accepted in the digit
	// positions and normalized afterwards.
	contentPattern = regexp.MustCompile(`P[0-9O]{6}`)

	// filenamePattern matches identifiers at the front of a filename. Only
	// separator-delimited forms count ("P123456-foo.docx", "P123456_v2.doc")
	// so that a longer digit run is not truncated into a false positive.
	filenamePattern = regexp.MustCompile(`P\d{6}[-_]`)

	// canonicalPattern matches an already-normalized identifier anywhere in
	// a string.
	canonicalPattern = regexp.MustCompile(`P\d{6}`)
)

// FromText returns the first project identifier found in text, normalized,
// or "" when none is present.
func FromText(text string) string {
	match := contentPattern.FindString(text)
	if match == "" {
		return ""
	}
	return Normalize(match)
}

// FromFilename returns the identifier embedded at the start of a filename,
// or "" when the name does not carry one. The trailing separator required by
// the match is not part of the result.
func FromFilename(name string) string {
	match := filenamePattern.FindString(name)
	if match == "" {
		return ""
	}
	return match[:len(match)-1]
}

// FromName returns the first canonical identifier anywhere in name, or "".
// Used when scanning already-renamed output files.
func FromName(name string) string {
	return canonicalPattern.FindString(name)
}

// Normalize maps the letter O to the digit 0 in the six positions after the
// leading P. The P itself is preserved.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	return "P" + strings.ReplaceAll(raw[1:], "O", "0")
}
