package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"bigscreen/internal/infrastructure/logging"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands each
// valid document to its callback. Invalid documents are logged and skipped.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Document)
	logger   logging.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher for path; Start begins watching
func NewWatcher(path string, onChange func(Document), logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Watcher{
		path:     path,
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start watches the directory holding the file so editors that replace it are seen
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = fw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx, fw, w.done)
	w.logger.Info("Watching config for changes", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	target := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	doc, err := LoadFile(w.path)
	if err != nil {
		logging.LogError(w.logger, err, "reload_config", map[string]interface{}{"path": w.path})
		return
	}
	w.logger.Info("Config changed, reloading", "path", w.path)
	if w.onChange != nil {
		w.onChange(doc)
	}
}

// Close stops watching and waits for the event loop to exit
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw, cancel, done := w.watcher, w.cancel, w.done
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	cancel()
	err := fw.Close()
	<-done
	return err
}
