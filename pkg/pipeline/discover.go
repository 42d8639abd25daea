package pipeline

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// wordExtensions are the input formats handed to the external converter.
var wordExtensions = map[string]bool{
	".doc":  true,
	".docx": true,
}

// discoverInputs walks the input tree and splits documents into those that
// need conversion and those that are already PDFs. Temporary Office lock
// files ("~$...") and symlinks are skipped. The returned slices are sorted
// so batch composition is deterministic.
func discoverInputs(opts *Options, logger *slog.Logger) (wordDocs, pdfDocs []string, err error) {
	hooks := opts.EventHooks

	walkErr := filepath.WalkDir(opts.InputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == opts.InputPath {
				return err
			}
			logger.Warn("Skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			logger.Debug("Skipping symlink", slog.String("path", path))
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") {
			logger.Debug("Skipping Office lock file", slog.String("path", path))
			return nil
		}

		switch ext := strings.ToLower(filepath.Ext(name)); {
		case wordExtensions[ext]:
			wordDocs = append(wordDocs, path)
		case ext == ".pdf":
			pdfDocs = append(pdfDocs, path)
		default:
			logger.Debug("Ignoring non-document file", slog.String("path", path))
			return nil
		}

		if hookErr := hooks.OnFileDiscovered(path); hookErr != nil {
			logger.Warn("OnFileDiscovered hook failed", slog.String("path", path), slog.Any("error", hookErr))
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("%w: scanning input directory %s: %w", ErrValidation, opts.InputPath, walkErr)
	}

	sort.Strings(wordDocs)
	sort.Strings(pdfDocs)
	logger.Info("Discovered input documents",
		slog.Int("wordDocuments", len(wordDocs)),
		slog.Int("pdfDocuments", len(pdfDocs)))
	return wordDocs, pdfDocs, nil
}
