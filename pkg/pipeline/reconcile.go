package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/projectdocs/pdfbatch/pkg/pipeline/mapping"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/naming"
	"github.com/projectdocs/pdfbatch/pkg/pipeline/projectid"
)

// Reconcile sweeps the output tree and inserts the country segment into any
// PDF whose identifier has a mapping entry but whose name lacks the country.
// It exists for outputs produced before a mapping was available; running it
// on an already-reconciled tree changes nothing. Returns the number of files
// renamed.
func Reconcile(ctx context.Context, outputRoot string, countries mapping.Table, handler slog.Handler) (int, error) {
	logger := slog.New(handler).With(slog.String("component", "reconcile"))
	if len(countries) == 0 {
		return 0, nil
	}

	updated := 0
	err := filepath.WalkDir(outputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if cErr := ctx.Err(); cErr != nil {
			return cErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			return nil
		}

		name := d.Name()
		pid := projectid.FromName(name)
		if pid == "" {
			return nil
		}
		country, ok := countries[pid]
		if !ok {
			return nil
		}
		underscored := strings.ReplaceAll(country, " ", "_")
		if strings.Contains(name, underscored) {
			return nil
		}

		newName := naming.InsertCountry(name, pid, country)
		if newName == "" {
			// Name carries the identifier somewhere other than the leading
			// segment; leave hand-renamed files alone.
			logger.Debug("Identifier not in leading position, skipping",
				slog.String("path", path), slog.String("projectId", pid))
			return nil
		}

		target := naming.Resolve(filepath.Dir(path), newName)
		if rErr := os.Rename(path, target); rErr != nil {
			logger.Warn("Could not insert country segment",
				slog.String("path", path), slog.Any("error", rErr))
			return nil
		}
		updated++
		logger.Debug("Inserted country segment",
			slog.String("from", name), slog.String("to", filepath.Base(target)))
		return nil
	})
	if err != nil {
		return updated, err
	}

	if updated > 0 {
		logger.Info("Reconciled country segments", slog.Int("updated", updated))
	}
	return updated, nil
}
