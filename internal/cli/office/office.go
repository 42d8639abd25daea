// Package office implements the pipeline.Converter interface on top of a
// headless LibreOffice installation. It handles binary discovery per
// platform, conversion retries with lingering-process cleanup between
// attempts, and a copy-to-temp fallback for inputs held open by cloud sync
// clients.
package office

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/projectdocs/pdfbatch/pkg/pipeline"
)

// converterProcessNames identify LibreOffice processes for Reset. The list
// covers the wrapper and the actual binary across platforms.
var converterProcessNames = map[string]bool{
	"soffice":     true,
	"soffice.bin": true,
	"soffice.exe": true,
}

// cloudSyncMarkers are path segments that indicate a file lives inside a
// sync client's managed tree, where open handles routinely break direct
// conversion.
var cloudSyncMarkers = []string{"onedrive", "sharepoint"}

// commandRunner executes the converter binary. Swapped in tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// processKiller terminates lingering converter processes. Swapped in tests.
type processKiller func(ctx context.Context) (int, error)

// Config tunes the adapter. Zero values select the defaults.
type Config struct {
	// Binary is the soffice executable. Empty triggers platform discovery.
	Binary string
	// Retries is how many additional attempts follow a failed conversion.
	Retries int
	// Backoff is the fixed delay before each retry.
	Backoff time.Duration
	// Settle is the pause after killing converter processes, giving the OS
	// time to release profile locks.
	Settle time.Duration
	// Timeout bounds a single conversion attempt.
	Timeout time.Duration
}

const (
	defaultRetries = 2
	defaultBackoff = 3 * time.Second
	defaultSettle  = 2 * time.Second
	defaultTimeout = 2 * time.Minute
)

// Adapter runs LibreOffice conversions. Safe for concurrent use; every
// conversion works in its own temporary directory.
type Adapter struct {
	binary string
	cfg    Config
	logger *slog.Logger
	run    commandRunner
	kill   processKiller
}

// New discovers the LibreOffice binary and returns a ready Adapter. When no
// usable binary exists the returned error wraps pipeline.ErrCapability.
func New(handler slog.Handler, cfg Config) (*Adapter, error) {
	logger := slog.New(handler).With(slog.String("component", "office"))

	if cfg.Retries <= 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	binary := cfg.Binary
	if binary == "" {
		found, err := findBinary()
		if err != nil {
			return nil, err
		}
		binary = found
	}
	logger.Debug("Using converter binary", slog.String("binary", binary))

	return &Adapter{
		binary: binary,
		cfg:    cfg,
		logger: logger,
		run:    runCommand,
		kill:   killConverterProcesses,
	}, nil
}

// Check implements the pipeline.Converter interface by probing the binary.
func (a *Adapter) Check() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := a.run(ctx, a.binary, "--version"); err != nil {
		return fmt.Errorf("%w: %s not runnable: %w", pipeline.ErrCapability, a.binary, err)
	}
	return nil
}

// Convert implements the pipeline.Converter interface. Failed attempts are
// retried after killing lingering converter processes; inputs under cloud
// sync trees get a copy-to-temp fallback within each attempt.
func (a *Adapter) Convert(ctx context.Context, inputPath, outputPath string) error {
	logger := a.logger.With(slog.String("input", inputPath))

	var lastErr error
	for attempt := 0; attempt <= a.cfg.Retries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying conversion",
				slog.Int("attempt", attempt+1), slog.Any("previousError", lastErr))
			if err := a.Reset(ctx); err != nil {
				logger.Warn("Process cleanup before retry failed", slog.Any("error", err))
			}
			select {
			case <-time.After(a.cfg.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = a.convertOnce(ctx, inputPath, outputPath, logger)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", a.cfg.Retries+1, lastErr)
}

// Reset implements the pipeline.Converter interface: it kills lingering
// converter processes and waits for profile locks to clear.
func (a *Adapter) Reset(ctx context.Context) error {
	killed, err := a.kill(ctx)
	if err != nil {
		return err
	}
	if killed > 0 {
		a.logger.Debug("Terminated lingering converter processes", slog.Int("count", killed))
		select {
		case <-time.After(a.cfg.Settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// convertOnce performs a single attempt. When the direct conversion of a
// cloud-synced input fails, the input is copied to a temp file and converted
// from there before the attempt is counted as failed.
func (a *Adapter) convertOnce(ctx context.Context, inputPath, outputPath string, logger *slog.Logger) error {
	err := a.export(ctx, inputPath, outputPath)
	if err == nil {
		return nil
	}
	if !isCloudSynced(inputPath) {
		return err
	}

	logger.Debug("Direct conversion failed under sync tree, copying to temp", slog.Any("error", err))
	tmp, copyErr := copyToTemp(inputPath)
	if copyErr != nil {
		return fmt.Errorf("direct conversion failed (%v) and temp copy failed: %w", err, copyErr)
	}
	defer os.Remove(tmp)
	return a.export(ctx, tmp, outputPath)
}

// export runs the converter into a private temp directory, then moves the
// produced file to outputPath. The indirection guarantees the converter can
// never clobber an existing file in the output tree.
func (a *Adapter) export(ctx context.Context, inputPath, outputPath string) error {
	workDir, err := os.MkdirTemp("", "pdfbatch-convert-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	out, err := a.run(ctx, a.binary,
		"--headless", "--norestore", "--convert-to", "pdf", "--outdir", workDir, inputPath)
	if err != nil {
		return fmt.Errorf("converter failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	produced := filepath.Join(workDir, stem+".pdf")
	if _, err := os.Stat(produced); err != nil {
		return fmt.Errorf("converter reported success but produced no file: %w", err)
	}

	// Rename fails across filesystems (temp and output on different
	// mounts); fall back to a copy.
	if err := os.Rename(produced, outputPath); err != nil {
		if copyErr := copyAcross(produced, outputPath); copyErr != nil {
			return fmt.Errorf("moving produced file: %w", copyErr)
		}
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// killConverterProcesses terminates every process whose name matches a known
// converter binary. Permission errors on other users' processes are skipped.
func killConverterProcesses(ctx context.Context) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}
	killed := 0
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if !converterProcessNames[strings.ToLower(name)] {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			continue
		}
		killed++
	}
	return killed, nil
}

// findBinary locates the LibreOffice executable for the current platform.
func findBinary() (string, error) {
	switch runtime.GOOS {
	case "windows":
		for _, candidate := range []string{
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	case "darwin":
		candidate := "/Applications/LibreOffice.app/Contents/MacOS/soffice"
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	default:
		for _, name := range []string{"libreoffice", "soffice"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: LibreOffice not found (install it or set converter.binary)", pipeline.ErrCapability)
}

// isCloudSynced reports whether path contains a known sync-client segment.
func isCloudSynced(path string) bool {
	lowered := strings.ToLower(filepath.ToSlash(path))
	for _, marker := range cloudSyncMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp("", "pdfbatch-input-*"+filepath.Ext(src))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func copyAcross(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
