// Package watch reports changes to the data file made outside the current
// session, so the user knows the loaded dataset may be stale.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bowerhall/roster/internal/logger"
)

type Op int

const (
	Created Op = iota
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

type Event struct {
	Path string
	Op   Op
}

const defaultDebounce = 500 * time.Millisecond

// FileWatcher watches a single file through its parent directory, which
// also catches the file being replaced by rename.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
}

func New(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  w,
		path:     filepath.Clean(abs),
		debounce: defaultDebounce,
	}, nil
}

// Watch starts monitoring and emits at most one event per debounce window.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan Event, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, err
	}

	events := make(chan Event, 8)

	go func() {
		defer close(events)

		var last time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}

				var op Op
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = Created
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = Modified
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					op = Removed
				default:
					continue
				}

				if time.Since(last) < w.debounce {
					continue
				}
				last = time.Now()

				select {
				case events <- Event{Path: w.path, Op: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("file watcher error", "path", w.path, "error", err)
			}
		}
	}()

	return events, nil
}

func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}
