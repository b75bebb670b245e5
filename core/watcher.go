package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher calls OnChange once per burst of file system events under its
// directories. Directories created after Start are watched too.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	onChange func()
	logger   *logrus.Logger

	fsw   *fsnotify.Watcher
	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(dirs []string, onChange func(), logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Watcher{
		dirs:     dirs,
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching and returns once every existing directory is
// registered. Watching stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fsw = fsw

	for _, dir := range w.dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return err
		}
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); err != nil {
		w.logger.WithField("dir", root).Debug("watch dir missing, skipped")
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			w.logger.WithField("file", event.Name).WithField("op", event.Op.String()).Debug("file changed")
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
