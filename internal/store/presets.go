package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/model"
)

// Defaults returns a fresh built-in default set without touching the store.
func (s *Store) Defaults() ([]model.AppConfig, error) {
	return DefaultConfigs()
}

// SavePreset snapshots the current set under name.
func (s *Store) SavePreset(name string) error {
	name, err := checkPresetName(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := s.write(presetKey(name), s.configs); err != nil {
		return err
	}

	s.logger.Info("saved preset", "name", name, "count", len(s.configs))
	return nil
}

// LoadPreset replaces the current set with the named snapshot and persists it.
// The reserved default name always yields the built-in defaults.
func (s *Store) LoadPreset(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyPresetName
	}
	if name == DefaultPresetName {
		return s.ResetToDefaults()
	}

	configs, err := s.read(presetKey(name))
	if err != nil {
		if errors.Is(err, ErrNoConfiguration) {
			s.logger.Info("preset not found", "name", name)
			return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
		}
		return err
	}
	configs, _ = s.normalize(configs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := s.commitLocked(configs); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeReplace, Count: len(configs)})
	s.logger.Info("loaded preset", "name", name, "count", len(configs))
	return nil
}

// DeletePreset removes a saved preset. The reserved default name is refused.
func (s *Store) DeletePreset(name string) error {
	name, err := checkPresetName(name)
	if err != nil {
		return err
	}
	if s.kv == nil {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}

	key := presetKey(name)
	if _, err := s.kv.Get(key); err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
		}
		return err
	}
	if err := s.kv.Delete(key); err != nil {
		return fmt.Errorf("failed to delete preset %s: %w", name, err)
	}

	s.logger.Info("deleted preset", "name", name)
	return nil
}

// ListPresets returns the saved preset names, sorted, with the reserved
// default name always first.
func (s *Store) ListPresets() ([]string, error) {
	names := []string{}
	if s.kv != nil {
		keys, err := s.kv.Keys(PresetKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list presets: %w", err)
		}
		for _, k := range keys {
			name := strings.TrimPrefix(k, PresetKeyPrefix)
			if name == "" || name == DefaultPresetName {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{DefaultPresetName}, names...), nil
}

// checkPresetName trims name and rejects empty or reserved names.
func checkPresetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyPresetName
	}
	if name == DefaultPresetName {
		return "", fmt.Errorf("%w: %s", ErrReservedPresetName, name)
	}
	return name, nil
}
