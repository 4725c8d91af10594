// Package store provides the configuration store for monitored applications
// and their named presets.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/model"
)

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates a config was added.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeUpdate indicates a config was modified.
	ChangeTypeUpdate
	// ChangeTypeDelete indicates configs were deleted.
	ChangeTypeDelete
	// ChangeTypeReplace indicates the whole set was replaced (load, reset, preset).
	ChangeTypeReplace
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type  ChangeType
	Count int
}

// Store owns the live AppConfig collection. Every mutation is persisted
// before it becomes visible; a failed write leaves memory untouched.
type Store struct {
	mu       sync.RWMutex
	configs  []model.AppConfig
	byBundle map[string]int // bundle identifier -> slice index
	byID     map[string]int // id -> slice index

	kv     kv.Store
	logger *slog.Logger

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates an empty Store backed by backend. Call Load to hydrate it.
func NewStore(backend kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		configs:     make([]model.AppConfig, 0),
		byBundle:    make(map[string]int),
		byID:        make(map[string]int),
		kv:          backend,
		logger:      logger,
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// Load reads the persisted configuration and normalizes it.
// On a missing key it returns ErrNoConfiguration; on a corrupt blob it returns
// an error wrapping ErrDecodeFailure. In both cases the store is left empty and
// the caller decides whether to seed defaults.
func (s *Store) Load() error {
	configs, err := s.read(ConfigKey)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if err != nil {
		s.replaceLocked(nil)
		s.mu.Unlock()
		return err
	}
	normalized, changed := s.normalize(configs)
	s.replaceLocked(normalized)
	count := len(s.configs)
	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace, Count: count})
	s.mu.Unlock()

	s.logger.Debug("loaded app configs", "count", count)

	if changed {
		if err := s.Save(); err != nil {
			s.logger.Warn("failed to persist normalized app configs", "error", err)
		}
	}
	return nil
}

// Reload re-reads persisted state written by another process. Unlike Load,
// a missing or unreadable blob keeps the current in-memory set.
func (s *Store) Reload() error {
	configs, err := s.read(ConfigKey)
	if err != nil {
		return err
	}

	normalized, _ := s.normalize(configs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if slices.Equal(s.configs, normalized) {
		return nil
	}
	s.replaceLocked(normalized)
	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace, Count: len(s.configs)})
	s.logger.Debug("reloaded app configs", "count", len(s.configs))
	return nil
}

// Save serializes the full current set, overwriting prior persisted state.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.write(ConfigKey, s.configs)
}

// List returns a copy of all configs in insertion order.
func (s *Store) List() []model.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.AppConfig, len(s.configs))
	copy(result, s.configs)
	return result
}

// Count returns the number of configs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// Get returns the config with the given id.
func (s *Store) Get(id string) (model.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.AppConfig{}, ErrConfigNotFound
	}
	return s.configs[idx], nil
}

// Lookup returns the config for a bundle identifier. This is the per-launch
// hot path.
func (s *Store) Lookup(bundleID string) (model.AppConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byBundle[bundleID]
	if !ok {
		return model.AppConfig{}, false
	}
	return s.configs[idx], true
}

// Add appends a config. A bundle identifier that is already configured is
// rejected with ErrDuplicateBundleIdentifier and the store is unchanged.
func (s *Store) Add(c model.AppConfig) error {
	if c.ID == "" {
		id, err := model.NewID()
		if err != nil {
			return err
		}
		c.ID = id
	}
	c.BundleIdentifier = strings.TrimSpace(c.BundleIdentifier)
	if err := c.Validate(); err != nil {
		return err
	}
	c.SetVolume(c.Volume)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, exists := s.byBundle[c.BundleIdentifier]; exists {
		s.logger.Info("app config already exists", "bundle_id", c.BundleIdentifier)
		return fmt.Errorf("%w: %s", ErrDuplicateBundleIdentifier, c.BundleIdentifier)
	}
	if _, exists := s.byID[c.ID]; exists {
		return fmt.Errorf("%w: id %s", ErrDuplicateID, c.ID)
	}

	next := append(slices.Clone(s.configs), c)
	if err := s.commitLocked(next); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: 1})
	s.logger.Info("added app config", "app", c.AppName, "bundle_id", c.BundleIdentifier)
	return nil
}

// AddAll appends configs as one change. Every record gets a fresh id. If any
// bundle identifier is already configured, or repeats within configs, nothing
// is added.
func (s *Store) AddAll(configs []model.AppConfig) error {
	if len(configs) == 0 {
		return nil
	}

	batch := make([]model.AppConfig, len(configs))
	for i, c := range configs {
		id, err := model.NewID()
		if err != nil {
			return err
		}
		c.ID = id
		c.BundleIdentifier = strings.TrimSpace(c.BundleIdentifier)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		c.SetVolume(c.Volume)
		batch[i] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	seen := make(map[string]bool, len(batch))
	for _, c := range batch {
		if _, exists := s.byBundle[c.BundleIdentifier]; exists || seen[c.BundleIdentifier] {
			return fmt.Errorf("%w: %s", ErrDuplicateBundleIdentifier, c.BundleIdentifier)
		}
		seen[c.BundleIdentifier] = true
	}

	next := append(slices.Clone(s.configs), batch...)
	if err := s.commitLocked(next); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: len(batch)})
	s.logger.Info("added app configs", "count", len(batch))
	return nil
}

// Update replaces the config with the same id.
func (s *Store) Update(c model.AppConfig) error {
	c.BundleIdentifier = strings.TrimSpace(c.BundleIdentifier)
	if err := c.Validate(); err != nil {
		return err
	}
	c.SetVolume(c.Volume)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	idx, ok := s.byID[c.ID]
	if !ok {
		s.logger.Info("could not find app config to update", "id", c.ID)
		return fmt.Errorf("%w: %s", ErrConfigNotFound, c.ID)
	}

	// Changing the bundle identifier must not collide with another entry.
	if other, exists := s.byBundle[c.BundleIdentifier]; exists && other != idx {
		return fmt.Errorf("%w: %s", ErrDuplicateBundleIdentifier, c.BundleIdentifier)
	}

	next := slices.Clone(s.configs)
	next[idx] = c
	if err := s.commitLocked(next); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeUpdate, Count: 1})
	s.logger.Debug("updated app config", "app", c.AppName, "id", c.ID)
	return nil
}

// Delete removes the config with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	next := slices.Delete(slices.Clone(s.configs), idx, idx+1)
	if err := s.commitLocked(next); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeDelete, Count: 1})
	s.logger.Info("deleted app config", "id", id)
	return nil
}

// DeleteIndices removes the configs at the given list positions.
// Out-of-range and repeated indices are ignored.
func (s *Store) DeleteIndices(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(s.configs) {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}

	next := make([]model.AppConfig, 0, len(s.configs)-len(drop))
	for i, c := range s.configs {
		if !drop[i] {
			next = append(next, c)
		}
	}
	if err := s.commitLocked(next); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeDelete, Count: len(drop)})
	s.logger.Info("deleted app configs", "count", len(drop))
	return nil
}

// ResetToDefaults replaces the whole set with the built-in defaults.
func (s *Store) ResetToDefaults() error {
	defaults, err := DefaultConfigs()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := s.commitLocked(defaults); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace, Count: len(defaults)})
	s.logger.Info("reset app configs to defaults", "count", len(defaults))
	return nil
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes subscriber channels and the backing store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.kv != nil {
		return s.kv.Close()
	}
	return nil
}

// commitLocked persists next and, only on success, makes it the live set.
func (s *Store) commitLocked(next []model.AppConfig) error {
	if err := s.write(ConfigKey, next); err != nil {
		return err
	}
	s.replaceLocked(next)
	return nil
}

// replaceLocked swaps the live set and rebuilds the indices.
func (s *Store) replaceLocked(configs []model.AppConfig) {
	if configs == nil {
		configs = make([]model.AppConfig, 0)
	}
	s.configs = configs
	s.byBundle = make(map[string]int, len(configs))
	s.byID = make(map[string]int, len(configs))
	for i, c := range configs {
		s.byBundle[c.BundleIdentifier] = i
		s.byID[c.ID] = i
	}
}

// normalize runs the normalization rules and set-level sanitation.
func (s *Store) normalize(configs []model.AppConfig) ([]model.AppConfig, bool) {
	rewritten := Normalize(configs)
	if rewritten > 0 {
		s.logger.Info("normalized legacy sound names", "count", rewritten)
	}
	cleaned, sanitized := sanitize(configs, s.logger)
	return cleaned, rewritten > 0 || sanitized
}

// read decodes the collection stored under key.
func (s *Store) read(key string) ([]model.AppConfig, error) {
	if s.kv == nil {
		return nil, ErrNoConfiguration
	}

	data, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, ErrNoConfiguration
		}
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	var configs []model.AppConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return configs, nil
}

// write serializes configs under key.
func (s *Store) write(key string, configs []model.AppConfig) error {
	if s.kv == nil {
		return nil
	}
	if configs == nil {
		configs = []model.AppConfig{}
	}

	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to encode app configs: %w", err)
	}
	if err := s.kv.Set(key, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Errors
var (
	ErrStoreClosed               = storeError("store is closed")
	ErrNoConfiguration           = storeError("no persisted configuration")
	ErrDecodeFailure             = storeError("persisted configuration is corrupt")
	ErrDuplicateBundleIdentifier = storeError("bundle identifier already configured")
	ErrDuplicateID               = storeError("config id already exists")
	ErrConfigNotFound            = storeError("app config not found")
	ErrPresetNotFound            = storeError("preset not found")
	ErrReservedPresetName        = storeError("preset name is reserved")
	ErrEmptyPresetName           = storeError("preset name cannot be empty")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
