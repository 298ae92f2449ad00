// Package watch reports image files in a directory once they stop changing.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Filter decides which paths are reported
type Filter func(path string) bool

// Watcher monitors one directory for new or rewritten files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	quiet     time.Duration
	filter    Filter

	// State tracking: path -> last write seen
	pending map[string]time.Time
	mu      sync.Mutex
}

// New creates a watcher on dir. A file is reported after quiet has passed with no
// further writes to it.
func New(dir string, quiet time.Duration, filter Filter) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: absDir, Err: os.ErrInvalid}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(absDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       absDir,
		quiet:     quiet,
		filter:    filter,
		pending:   make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory
func (w *Watcher) Dir() string {
	return w.dir
}

// Run delivers stable paths to handle until ctx is done, then closes the watcher.
// Watch errors go to onError when it is non-nil. handle runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, handle func(path string), onError func(error)) error {
	defer w.fsWatcher.Close()

	tick := max(w.quiet/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			// Only track writes and creates
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.filter(event.Name) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}

		case now := <-ticker.C:
			for _, path := range w.stable(now) {
				handle(path)
			}
		}
	}
}

// stable removes and returns the files quiet since before now-quiet
func (w *Watcher) stable(now time.Time) []string {
	threshold := now.Add(-w.quiet)

	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if last.Before(threshold) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}
