// Package watch invalidates a session when the survey export changes on
// disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator is notified when the watched file changes.
type Invalidator interface {
	Invalidate()
}

const defaultDebounce = 300 * time.Millisecond

// Watcher watches a single file. The parent directory is watched so that
// editors replacing the file by rename are noticed too.
type Watcher struct {
	path     string
	target   Invalidator
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending bool
	last    time.Time
	fired   int
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a watcher that calls target.Invalidate when path changes.
func New(path string, target Invalidator, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		target:   target,
		logger:   logger,
		debounce: defaultDebounce,
	}
}

// SetDebounce changes how long the watcher waits for writes to settle.
// It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Fired returns how many times the target has been invalidated.
func (w *Watcher) Fired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.logger.Info("watching survey export", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, fw := w.stopCh, w.doneCh, w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fw.Close(); err != nil {
		w.logger.Warn("closing file watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	w.logger.Debug("survey export changed", zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending = true
	w.last = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending || time.Since(w.last) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.fired++
	w.mu.Unlock()

	w.target.Invalidate()
	w.logger.Info("survey export changed, cache invalidated", zap.String("path", w.path))
}
