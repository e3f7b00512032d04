package dataset

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"widgetforge/internal/logging"
)

// SeedWatcher watches the seed directory and reloads a dataset's YAML file
// when it changes, so reference data can be edited without a restart.
type SeedWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	seedDir     string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewSeedWatcher creates a watcher over the store's seed directory.
func NewSeedWatcher(store *Store, seedDir string) (*SeedWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &SeedWatcher{
		watcher:     watcher,
		store:       store,
		seedDir:     seedDir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond, // settle rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the loop runs in a goroutine until
// Stop is called or ctx is cancelled.
func (w *SeedWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.seedDir); err != nil {
		logging.Dataset("seed watch failed for %s: %v", w.seedDir, err)
	} else {
		logging.Dataset("watching seed directory: %s", w.seedDir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *SeedWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *SeedWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
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
			logging.Dataset("seed watcher error: %v", err)
		case <-ticker.C:
			w.processSettled()
		}
	}
}

func (w *SeedWatcher) handleEvent(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".yaml" && ext != ".yml" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *SeedWatcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	var toReload []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			toReload = append(toReload, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toReload {
		if err := w.store.LoadSeedFile(path); err != nil {
			logging.Dataset("seed reload failed for %s: %v", filepath.Base(path), err)
			continue
		}
		logging.Dataset("seed reloaded: %s", filepath.Base(path))
	}
}
