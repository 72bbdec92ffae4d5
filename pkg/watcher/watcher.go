// Package watcher reports, debounced, that something changed under a
// directory tree.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       logger.Logger
	delay     time.Duration
	events    chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once

	mu       sync.Mutex
	debounce *time.Timer
	closed   bool
}

// New watches root and every directory below it. Directories created later
// are added as they appear. Symbolic links are not followed.
func New(log logger.Logger, root string, delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		log:       log.Data(logger.Data{"root": root}),
		delay:     delay,
		events:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.WithStack(err)
			}
			w.log.Err(err).Warn("not watching unreadable directory", logger.Data{"path": path})
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return errors.WithStack(w.fsWatcher.Add(path))
	})
}

func (w *Watcher) run() {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
		close(w.events)
	}()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.debounce = time.AfterFunc(w.delay, w.signal)
			w.mu.Unlock()

			// fsnotify doesn't watch subdirectories on its own.
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Err(err).Warn("failed to watch new directory", logger.Data{"path": event.Name})
					}
				}
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Err(err).Warn("watch error")
		}
	}
}

func (w *Watcher) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- struct{}{}:
	default:
		// A change is already pending.
	}
}

// Events receives one value per quiet period after a burst of changes. It is
// closed after Close.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = errors.WithStack(w.fsWatcher.Close())
	})
	return err
}
