package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bakeslip/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type collector struct {
	mu    sync.Mutex
	files []model.SourceFile
}

func (c *collector) handle(ctx context.Context, f model.SourceFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, f)
	return nil
}

func (c *collector) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.files {
		out = append(out, f.Name)
	}
	return out
}

func TestInboxQueuesNewAndExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.csv"), []byte("Route,Product,Trays\n"), 0644))

	c := &collector{}
	in := NewInbox(dir, c.handle, nil)
	in.SetSettle(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.Eventually(t, func() bool { return len(c.names()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), []byte("%PDF-1.4"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))

	require.Eventually(t, func() bool { return len(c.names()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.ElementsMatch(t, []string{"existing.csv", "scan.pdf"}, c.names())
	c.mu.Lock()
	for _, f := range c.files {
		if f.Name == "scan.pdf" {
			require.Equal(t, "application/pdf", f.MediaType)
		}
	}
	c.mu.Unlock()

	processed, err := os.ReadDir(filepath.Join(dir, ProcessedDir))
	require.NoError(t, err)
	require.Len(t, processed, 2)
	_, err = os.Stat(filepath.Join(dir, "notes.md"))
	require.NoError(t, err)
}

func TestInboxRetriesRejectedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.csv"), []byte("Route,Product,Trays\n"), 0644))

	var accept atomic.Bool
	var calls atomic.Int32
	c := &collector{}
	handle := func(ctx context.Context, f model.SourceFile) error {
		calls.Add(1)
		if !accept.Load() {
			return errors.New("session is busy")
		}
		return c.handle(ctx, f)
	}

	in := NewInbox(dir, handle, nil)
	in.SetSettle(20 * time.Millisecond)
	in.SetRetry(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	_, err := os.Stat(filepath.Join(dir, "late.csv"))
	require.NoError(t, err)
	require.Empty(t, c.names())

	accept.Store(true)
	require.Eventually(t, func() bool { return len(c.names()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []string{"late.csv"}, c.names())
	require.GreaterOrEqual(t, calls.Load(), int32(2))
	_, err = os.Stat(filepath.Join(dir, "late.csv"))
	require.True(t, os.IsNotExist(err))
	processed, err := os.ReadDir(filepath.Join(dir, ProcessedDir))
	require.NoError(t, err)
	require.Len(t, processed, 1)
}
