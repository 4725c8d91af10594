package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events produced by a temp-file
// rename into a single reload.
const reloadDebounce = 50 * time.Millisecond

// BlobWatcher reloads a Store when its backing file is changed by another
// process, such as the CLI editing configs while the daemon runs.
type BlobWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	filePath string
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
}

// NewBlobWatcher creates a watcher for the store's persistence file.
func NewBlobWatcher(store *Store, filePath string, logger *slog.Logger) (*BlobWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &BlobWatcher{
		watcher:  watcher,
		store:    store,
		filePath: filePath,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (bw *BlobWatcher) Start() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.running {
		return nil
	}

	// Watch the directory: atomic saves replace the file's inode.
	if err := bw.watcher.Add(filepath.Dir(bw.filePath)); err != nil {
		return err
	}
	bw.running = true

	bw.wg.Add(1)
	go bw.watch()
	return nil
}

func (bw *BlobWatcher) watch() {
	defer bw.wg.Done()

	filename := filepath.Base(bw.filePath)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			// SQLite in WAL mode commits to the -wal file.
			if base := filepath.Base(event.Name); base != filename && base != filename+"-wal" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			bw.logger.Debug("config blob changed, reloading", "file", bw.filePath)
			if err := bw.store.Reload(); err != nil {
				bw.logger.Warn("failed to reload app configs", "error", err)
			}

		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			bw.logger.Warn("config blob watcher error", "error", err)

		case <-bw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop stops the watcher and waits for the loop to exit.
func (bw *BlobWatcher) Stop() error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	close(bw.done)
	err := bw.watcher.Close()
	bw.mu.Unlock()

	bw.wg.Wait()
	return err
}
