// File: internal/watch/watcher.go
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 250 * time.Millisecond

// Handler is called once per changed file after the debounce window closes.
// Calls are sequential and happen on the watcher goroutine.
type Handler func(ctx context.Context, path string)

// Watcher re-runs a Handler when any of a fixed set of files changes.
// The parent directories are watched rather than the files themselves so
// editors that save by writing a temporary file and renaming it over the
// original are still seen.
type Watcher struct {
	logger   *zap.Logger
	debounce time.Duration
	handler  Handler
	// files holds the cleaned absolute paths being watched.
	files map[string]bool
	dirs  []string
	fsw   *fsnotify.Watcher
}

// New creates a Watcher over files. It does not touch the filesystem until
// Start or Run.
func New(files []string, debounce time.Duration, handler Handler, logger *zap.Logger) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to watch")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		logger:   logger.Named("watcher"),
		debounce: debounce,
		handler:  handler,
		files:    make(map[string]bool, len(files)),
	}
	seenDirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("could not resolve '%s': %w", f, err)
		}
		w.files[abs] = true
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	sort.Strings(w.dirs)
	return w, nil
}

// Start registers the watches. Changes made after Start returns are seen by
// Run even if Run has not been called yet. Calling Start twice is an error.
func (w *Watcher) Start() error {
	if w.fsw != nil {
		return errors.New("watcher already started")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	w.fsw = fsw
	w.logger.Info("Watching configuration files", zap.Int("files", len(w.files)), zap.Duration("debounce", w.debounce))
	return nil
}

// Run watches until ctx is cancelled, then releases the fsnotify handle and
// returns nil. It calls Start first unless that has already been done, and
// returns an error if the watch cannot be established or the event stream
// closes unexpectedly.
func (w *Watcher) Run(ctx context.Context) error {
	if w.fsw == nil {
		if err := w.Start(); err != nil {
			return err
		}
	}
	fsw := w.fsw
	defer fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Watcher stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher event stream closed")
			}
			path := filepath.Clean(ev.Name)
			if !w.files[path] || !isContentChange(ev.Op) {
				continue
			}
			w.logger.Debug("Change detected", zap.String("file", path), zap.String("op", ev.Op.String()))
			pending[path] = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher error stream closed")
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			for _, p := range changed {
				if ctx.Err() != nil {
					return nil
				}
				w.handler(ctx, p)
			}
		}
	}
}

// isContentChange reports whether op may have changed a file's contents. A
// rename over the watched path arrives as Create.
func isContentChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create)
}
