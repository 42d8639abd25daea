package hooks_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/projectdocs/pdfbatch/internal/cli/hooks"
	"github.com/projectdocs/pdfbatch/pkg/pipeline"
)

// recordingBar counts progress bar interactions.
type recordingBar struct {
	mu        sync.Mutex
	added     int
	describes []string
	closed    bool
}

func (b *recordingBar) Add(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added += n
	return nil
}

func (b *recordingBar) Describe(d string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.describes = append(b.describes, d)
}

func (b *recordingBar) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func newHooks(bar hooks.ProgressBar) *hooks.CLIHooks {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return hooks.NewCLIHooks(logger, bar, false)
}

func TestStatusUpdatesDriveProgressBar(t *testing.T) {
	bar := &recordingBar{}
	h := newHooks(bar)

	assert.NoError(t, h.OnFileStatusUpdate("a.docx", pipeline.StatusConverting, "", 0))
	assert.NoError(t, h.OnFileStatusUpdate("a.docx", pipeline.StatusRenamed, "", time.Second))
	assert.NoError(t, h.OnFileStatusUpdate("b.docx", pipeline.StatusFailed, "boom", 0))

	assert.Equal(t, 2, bar.added, "only terminal statuses advance the bar")
	assert.Len(t, bar.describes, 1)
	assert.Contains(t, bar.describes[0], "a.docx")
}

func TestRunCompleteClosesBar(t *testing.T) {
	bar := &recordingBar{}
	h := newHooks(bar)

	assert.NoError(t, h.OnRunComplete(pipeline.Report{}))
	assert.True(t, bar.closed)
}

func TestNilBarDefaultsToNoOp(t *testing.T) {
	h := newHooks(nil)
	assert.NoError(t, h.OnFileStatusUpdate("a.docx", pipeline.StatusConverted, "", 0))
	assert.NoError(t, h.OnFileDiscovered("a.docx"))
	assert.NoError(t, h.OnRunComplete(pipeline.Report{}))
}

func TestConcurrentStatusUpdates(t *testing.T) {
	bar := &recordingBar{}
	h := newHooks(bar)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.OnFileStatusUpdate("doc.docx", pipeline.StatusConverted, "", 0)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, bar.added)
}
