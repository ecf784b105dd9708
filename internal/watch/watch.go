// Package watch triggers a rescan when the viewed directory changes on disk.
package watch

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of events into one rescan.
const DefaultDebounce = 500 * time.Millisecond

// Rescanner is the engine operation a change triggers.
type Rescanner interface {
	Rescan() error
}

// Watcher watches a single directory at a time.
type Watcher struct {
	fw       *fsnotify.Watcher
	target   Rescanner
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	dir    string
	timer  *time.Timer
	closed bool

	wg sync.WaitGroup
}

// New starts a watcher that calls target.Rescan after changes settle for
// debounce. It watches nothing until Follow is called.
func New(target Rescanner, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{fw: fw, target: target, debounce: debounce, log: log}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Follow switches the watch to dir.
func (w *Watcher) Follow(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || dir == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fw.Remove(w.dir)
	}
	w.dir = ""
	if w.timer != nil {
		w.timer.Stop()
	}
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dir = dir
	return nil
}

// Dir returns the directory being watched.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Close stops the watcher and any pending rescan.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	dir := w.dir
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		stale := w.closed || w.dir != dir
		w.mu.Unlock()
		if stale {
			return
		}
		w.log.Debug("change detected, rescanning", zap.String("dir", dir), zap.String("trigger", name))
		if err := w.target.Rescan(); err != nil {
			w.log.Warn("rescan failed", zap.String("dir", dir), zap.Error(err))
		}
	})
}
