// Package prompt collects missing run parameters interactively. Prompts are
// only issued on a real terminal; non-interactive invocations must supply
// everything via flags, environment or config file.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Line asks for a single free-form value. Surrounding whitespace and quotes
// (common when paths are pasted from a file manager) are stripped.
func Line(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	raw, err := r.ReadString('\n')
	if err != nil && raw == "" {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(raw), `"'`), nil
}

// Confirm asks a yes/no question, returning fallback on an empty answer.
func Confirm(r *bufio.Reader, w io.Writer, label string, fallback bool) (bool, error) {
	hint := "y/N"
	if fallback {
		hint = "Y/n"
	}
	fmt.Fprintf(w, "%s [%s]: ", label, hint)
	raw, err := r.ReadString('\n')
	if err != nil && raw == "" {
		return fallback, err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Columns presents the mapping file's header row and asks which columns hold
// the identifier and country. Empty answers keep the defaults (first and
// second column).
func Columns(r *bufio.Reader, w io.Writer, header []string) (idColumn, countryColumn string, err error) {
	fmt.Fprintln(w, "Mapping file columns:")
	for i, name := range header {
		fmt.Fprintf(w, "  [%d] %s\n", i, name)
	}
	idColumn, err = Line(r, w, "Identifier column (name or index, empty for first)")
	if err != nil {
		return "", "", err
	}
	countryColumn, err = Line(r, w, "Country column (name or index, empty for second)")
	if err != nil {
		return "", "", err
	}
	return idColumn, countryColumn, nil
}
