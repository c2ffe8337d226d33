package history

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"instapoem/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when its history file is changed by another process.
// It watches the parent directory because writes replace the file by rename.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	path        string
	dir         string
	debounceDur time.Duration
	pendingAt   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	reloads     int
}

// NewWatcher creates a watcher for the history file at path.
func NewWatcher(path string, store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		store:       store,
		path:        filepath.Clean(path),
		dir:         filepath.Dir(path),
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes how long the watcher waits for writes to settle.
// Must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounceDur = d
	w.mu.Unlock()
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.HistoryWarn("Watcher: failed to create %s: %v", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.History("Watcher: watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.HistoryError("Watcher: error closing: %v", err)
	}
}

// Reloads returns how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
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
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.HistoryError("Watcher error: %v", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	logging.HistoryDebug("Watcher: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pendingAt = time.Time{}
	w.reloads++
	w.mu.Unlock()

	w.store.Reload(ctx)
}
