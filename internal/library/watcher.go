package library

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the catalog in sync with changes made to the custom sounds
// directory by other processes.
type Watcher struct {
	watcher *fsnotify.Watcher
	lib     *Library
	logger  *slog.Logger
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a directory watcher for lib.
func NewWatcher(lib *Library, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: w,
		lib:     lib,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start creates the directory if needed and begins watching it.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.lib.ensureDir(); err != nil {
		return err
	}
	if err := w.watcher.Add(w.lib.Dir()); err != nil {
		return err
	}
	w.running = true

	w.wg.Add(1)
	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound directory watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !isCustomName(name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		w.logger.Debug("sound added", "name", name)
		w.lib.Refresh()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.logger.Debug("sound removed", "name", name)
		w.lib.Refresh()
		w.lib.notifyRemoved(name)
	case event.Has(fsnotify.Write):
		// Contents changed; drop any cached decode.
		w.lib.notifyRemoved(name)
	}
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	close(w.done)
	err := w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	return err
}
