// Package library manages the catalog of playable launch sounds: the built-in
// chimes shipped with the binary and user-imported files in a custom sounds
// directory.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/launchchime/internal/audio"
	"github.com/jmylchreest/launchchime/internal/model"
)

// MaxDuration is the longest sound that may be imported.
const MaxDuration = 3250 * time.Millisecond

// Errors
var (
	ErrDirectoryUnavailable = errors.New("custom sounds directory unavailable")
	ErrUnsupportedFileType  = errors.New("unsupported sound file type")
	ErrDuplicateSoundName   = errors.New("a sound with that name already exists")
	ErrDurationProbeFailure = errors.New("could not determine sound duration")
	ErrSoundTooLong         = errors.New("sound is too long")
	ErrCopyFailure          = errors.New("failed to copy sound")
	ErrBuiltinSound         = errors.New("built-in sounds cannot be deleted")
	ErrSoundNotFound        = errors.New("sound not found")
	ErrLibraryClosed        = errors.New("sound library is closed")
)

// SoundTooLongError reports the measured duration of a rejected import.
type SoundTooLongError struct {
	Duration time.Duration
	Limit    time.Duration
}

func (e *SoundTooLongError) Error() string {
	return fmt.Sprintf("sound is %s long, limit is %s",
		e.Duration.Round(10*time.Millisecond), e.Limit)
}

// Is lets errors.Is match ErrSoundTooLong.
func (e *SoundTooLongError) Is(target error) bool {
	return target == ErrSoundTooLong
}

// Asset describes one catalog entry.
type Asset struct {
	Name    string `json:"name"`
	Builtin bool   `json:"builtin"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size"`
}

// Library owns the sound catalog.
type Library struct {
	mu      sync.RWMutex
	dir     string
	catalog []string
	hooks   []func(name string)
	closed  bool
	logger  *slog.Logger

	// importMu guards inflight, the names currently being imported.
	importMu sync.Mutex
	inflight map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a library over the custom sounds directory dir.
// The directory is created lazily on the first import.
func New(dir string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Library{
		dir:      dir,
		logger:   logger,
		inflight: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	l.Refresh()
	return l
}

// Dir returns the custom sounds directory.
func (l *Library) Dir() string {
	return l.dir
}

// Catalog returns the current catalog: the NoSound sentinel followed by
// every built-in and custom sound name, sorted.
func (l *Library) Catalog() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]string, len(l.catalog))
	copy(result, l.catalog)
	return result
}

// Refresh rebuilds the catalog from the built-ins and the custom directory.
// An absent or unreadable directory counts as empty.
func (l *Library) Refresh() []string {
	names := make(map[string]bool)
	for _, name := range BundledSounds {
		names[name] = true
	}
	for _, name := range l.customNames() {
		names[name] = true
	}
	delete(names, model.NoSound)

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	catalog := append([]string{model.NoSound}, sorted...)

	l.mu.Lock()
	l.catalog = catalog
	l.mu.Unlock()

	l.logger.Debug("refreshed sound catalog", "count", len(catalog)-1)
	return l.Catalog()
}

// customNames lists recognized audio files in the custom directory.
func (l *Library) customNames() []string {
	if l.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("failed to read custom sounds directory", "dir", l.dir, "error", err)
		}
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isCustomName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// isCustomName reports whether a directory entry can be a custom sound.
// Hidden files hold imports in progress.
func isCustomName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if filepath.Base(name) != name {
		return false
	}
	return audio.IsSupported(filepath.Ext(name))
}

// Assets returns the catalog without the sentinel, with sizes and locations.
func (l *Library) Assets() []Asset {
	catalog := l.Catalog()
	assets := make([]Asset, 0, len(catalog))

	for _, name := range catalog {
		if name == model.NoSound {
			continue
		}
		if IsBuiltin(name) {
			assets = append(assets, Asset{Name: name, Builtin: true, Size: builtinSize(name)})
			continue
		}

		path := filepath.Join(l.dir, name)
		a := Asset{Name: name, Path: path}
		if info, err := os.Stat(path); err == nil {
			a.Size = info.Size()
		}
		assets = append(assets, a)
	}
	return assets
}

// Contains reports whether name is currently in the catalog.
func (l *Library) Contains(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, n := range l.catalog {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve maps a catalog name to a loadable source. Built-ins are matched by
// bare name, custom sounds by exact file name.
func (l *Library) Resolve(name string) (audio.Source, error) {
	if !model.IsPlayableSound(name) {
		return audio.Source{}, fmt.Errorf("%w: %q", ErrSoundNotFound, name)
	}

	if IsBuiltin(name) {
		return audio.Source{
			Name: name,
			Ext:  BuiltinExt,
			Path: "builtin:" + name,
			Open: func() (io.ReadCloser, error) { return openBuiltin(name) },
		}, nil
	}

	path, err := l.customPath(name)
	if err != nil {
		return audio.Source{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return audio.Source{}, fmt.Errorf("%w: %s", ErrSoundNotFound, name)
	}

	return audio.Source{
		Name: name,
		Ext:  filepath.Ext(name),
		Path: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// customPath returns the location of a custom sound name.
func (l *Library) customPath(name string) (string, error) {
	if l.dir == "" {
		return "", ErrDirectoryUnavailable
	}
	if !isCustomName(name) {
		return "", fmt.Errorf("%w: %s", ErrSoundNotFound, name)
	}
	return filepath.Join(l.dir, name), nil
}

// Delete removes a custom sound. Built-in names are refused.
func (l *Library) Delete(name string) error {
	if IsBuiltin(name) {
		return fmt.Errorf("%w: %s", ErrBuiltinSound, name)
	}
	if !model.IsPlayableSound(name) {
		return fmt.Errorf("%w: %q", ErrSoundNotFound, name)
	}
	if l.isClosed() {
		return ErrLibraryClosed
	}

	path, err := l.customPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSoundNotFound, name)
		}
		return fmt.Errorf("failed to delete sound %s: %w", name, err)
	}

	l.logger.Info("deleted sound", "name", name)
	l.Refresh()
	l.notifyRemoved(name)
	return nil
}

// OnRemove registers fn to run after a sound is deleted or replaced on disk.
func (l *Library) OnRemove(fn func(name string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

func (l *Library) notifyRemoved(name string) {
	l.mu.RLock()
	hooks := make([]func(string), len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.RUnlock()

	for _, fn := range hooks {
		fn(name)
	}
}

// ensureDir creates the custom directory if needed.
func (l *Library) ensureDir() error {
	if l.dir == "" {
		return ErrDirectoryUnavailable
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return nil
}

func (l *Library) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Close abandons pending imports and waits for them to clean up.
func (l *Library) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}
