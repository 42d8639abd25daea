// Package naming is the single place where output filenames are composed
// and made unique. Every rename in the pipeline, including the country
// reconciliation pass, goes through Resolve so that collision handling
// behaves identically everywhere.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Compose builds the canonical output filename for a classified document:
// the identifier, an optional country segment, and the language tag, joined
// by underscores. Spaces inside country are replaced with underscores so the
// name stays a single shell-safe token.
func Compose(projectID, country, lang string) string {
	parts := []string{projectID}
	if country != "" {
		parts = append(parts, strings.ReplaceAll(country, " ", "_"))
	}
	parts = append(parts, lang)
	return strings.Join(parts, "_") + ".pdf"
}

// InsertCountry returns filename with country inserted directly after the
// leading identifier segment, or "" when the name does not start with
// projectID and should be left alone.
func InsertCountry(filename, projectID, country string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	parts := strings.Split(stem, "_")
	if parts[0] != projectID {
		return ""
	}
	country = strings.ReplaceAll(country, " ", "_")
	rebuilt := append([]string{projectID, country}, parts[1:]...)
	return strings.Join(rebuilt, "_") + ext
}

// Resolve returns a path under dir for the desired filename that does not
// exist at call time. On collision a two-digit counter is appended before
// the extension: name.pdf, name_01.pdf, name_02.pdf, and so on. The check
// and later creation are not atomic; concurrent workers may rarely resolve
// the same candidate, in which case the loser picks up the next counter.
func Resolve(dir, desired string) string {
	candidate := filepath.Join(dir, desired)
	if !exists(candidate) {
		return candidate
	}
	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%02d%s", stem, i, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
