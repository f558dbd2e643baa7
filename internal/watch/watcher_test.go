// File: internal/watch/watcher_test.go
package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// startWatcher registers w's watches, runs it in the background and returns a
// stop function that cancels it and waits for Run to return.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	require.NoError(t, w.Start())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop after cancellation")
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_Validation(t *testing.T) {
	noop := func(context.Context, string) {}

	_, err := New(nil, time.Second, noop, nil)
	assert.Error(t, err)

	_, err = New([]string{"a.yaml"}, time.Second, nil, nil)
	assert.Error(t, err)

	w, err := New([]string{"a.yaml", "./a.yaml", "sub/b.yaml"}, 0, noop, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Len(t, w.files, 2)
	assert.Len(t, w.dirs, 2)
}

func TestWatcher_DebouncesChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	watched := filepath.Join(dir, "training.yaml")
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, watched, "a: 1\n")

	calls := make(chan string, 10)
	w, err := New([]string{watched}, 150*time.Millisecond, func(_ context.Context, path string) {
		calls <- path
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	stop := startWatcher(t, w)

	writeFile(t, other, "ignored")
	for i := 0; i < 3; i++ {
		writeFile(t, watched, "a: 2\n")
	}

	select {
	case got := <-calls:
		assert.Equal(t, watched, got)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
	select {
	case got := <-calls:
		t.Fatalf("burst of writes triggered a second call for %s", got)
	case <-time.After(400 * time.Millisecond):
	}

	stop()
}

func TestWatcher_AtomicReplace(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	watched := filepath.Join(dir, "mpc.yaml")
	writeFile(t, watched, "a: 1\n")

	calls := make(chan string, 10)
	w, err := New([]string{watched}, 50*time.Millisecond, func(_ context.Context, path string) {
		calls <- path
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	stop := startWatcher(t, w)

	tmp := filepath.Join(dir, ".mpc.yaml.swp")
	writeFile(t, tmp, "a: 3\n")
	require.NoError(t, os.Rename(tmp, watched))

	select {
	case got := <-calls:
		assert.Equal(t, watched, got)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called after rename")
	}
	stop()
}

func TestWatcher_ChangeBeforeRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	watched := filepath.Join(dir, "sac.yaml")
	writeFile(t, watched, "a: 1\n")

	calls := make(chan string, 10)
	w, err := New([]string{watched}, 20*time.Millisecond, func(_ context.Context, path string) {
		calls <- path
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.ErrorContains(t, w.Start(), "already started")

	// Written after the watches exist but before the event loop runs.
	writeFile(t, watched, "a: 2\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case got := <-calls:
		assert.Equal(t, watched, got)
	case <-time.After(5 * time.Second):
		t.Fatal("change made before Run was lost")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := New([]string{filepath.Join(t.TempDir(), "absent", "x.yaml")}, time.Second, func(context.Context, string) {}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, w.Start(), "failed to watch directory")
	assert.ErrorContains(t, w.Run(context.Background()), "failed to watch directory")
}
