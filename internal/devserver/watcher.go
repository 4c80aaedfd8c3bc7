package devserver

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher monitors a source tree and triggers rebuilds on changes.
type Watcher struct {
	root     string
	callback func()
	log      zerolog.Logger
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration. Default is 300ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher over the directory tree rooted at root. The
// callback runs after changes settle for the debounce interval, coalescing
// editor save bursts into a single rebuild.
func NewWatcher(root string, callback func(), log zerolog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     root,
		callback: callback,
		log:      log,
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the tree for changes and invokes the callback on debounced
// write/create/remove events. It blocks until ctx is cancelled, then returns
// nil.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// fsnotify does not recurse, so every directory is added individually.
	if err := addTree(fsw, w.root); err != nil {
		return err
	}

	rebuildCh := make(chan struct{}, 1)
	var debounceTimer *time.Timer

	w.log.Debug().Str("root", w.root).Msg("Watching for changes")

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if err := addTree(fsw, event.Name); err == nil {
					w.log.Debug().Str("dir", event.Name).Msg("Watching new directory")
				}
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case rebuildCh <- struct{}{}:
				default:
				}
			})

		case <-rebuildCh:
			w.callback()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// addTree registers path and every directory below it. Non-directories are
// ignored, as are paths that vanish mid-walk.
func addTree(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(p)
	})
}
