package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/launchchime/internal/adapter/input"
	"github.com/jmylchreest/launchchime/internal/audio"
	"github.com/jmylchreest/launchchime/internal/config"
	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/login"
	"github.com/jmylchreest/launchchime/internal/model"
	"github.com/jmylchreest/launchchime/internal/store"
)

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	// Backend replaces the key-value store selected by the config.
	Backend kv.Store
	// Output replaces the speaker.
	Output audio.Output
	// Autostart replaces the default launch-at-login entry.
	Autostart *login.Autostart
}

// Services holds one instance of each long-lived service, wired together.
type Services struct {
	Config  *config.Config
	Store   *store.Store
	Library *library.Library
	Engine  *audio.Engine
	Login   *login.Autostart

	// Seeded reports whether Open installed the default set.
	Seeded bool

	logger *slog.Logger
}

// Open builds the services described by cfg and loads the app configs,
// seeding the built-in defaults when nothing usable is persisted.
func Open(cfg *config.Config, opts Options, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := opts.Backend
	if backend == nil {
		path := cfg.StoragePath()
		if path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		var err error
		backend, err = kv.Open(kv.Backend(cfg.Storage.Backend), path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
		}
	}

	st := store.NewStore(backend, logger)
	seeded, err := loadOrSeed(st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	lib := library.New(cfg.SoundsDir(), logger)
	engine := audio.NewEngine(lib, audio.Options{
		SampleRate: cfg.Audio.SampleRate,
		Buffer:     cfg.Audio.Buffer.Duration(),
		Output:     opts.Output,
	}, logger)
	lib.OnRemove(engine.Invalidate)

	autostart := opts.Autostart
	if autostart == nil {
		autostart = login.New("")
	}

	return &Services{
		Config:  cfg,
		Store:   st,
		Library: lib,
		Engine:  engine,
		Login:   autostart,
		Seeded:  seeded,
		logger:  logger,
	}, nil
}

// loadOrSeed loads persisted configs, installing the defaults when the
// blob is missing or unreadable.
func loadOrSeed(st *store.Store, logger *slog.Logger) (bool, error) {
	err := st.Load()
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, store.ErrNoConfiguration):
		logger.Info("no saved app configs, installing defaults")
	case errors.Is(err, store.ErrDecodeFailure):
		logger.Warn("saved app configs unreadable, installing defaults", "error", err)
	default:
		return false, fmt.Errorf("failed to load app configs: %w", err)
	}

	if err := st.ResetToDefaults(); err != nil {
		return false, fmt.Errorf("failed to seed default app configs: %w", err)
	}
	return true, nil
}

// AddApp creates a config for an application with the given sound.
func (s *Services) AddApp(appName, bundleID, appPath, sound string, volume float64) (model.AppConfig, error) {
	if err := s.checkSound(sound); err != nil {
		return model.AppConfig{}, err
	}

	c, err := model.NewAppConfig(appName, bundleID, appPath, sound)
	if err != nil {
		return model.AppConfig{}, err
	}
	c.SetVolume(volume)

	if err := s.Store.Add(*c); err != nil {
		return model.AppConfig{}, err
	}
	return s.Store.Get(c.ID)
}

// ImportApps reads configs from src and adds them in one change. An unknown
// sound or an already configured bundle identifier rejects the whole batch.
func (s *Services) ImportApps(ctx context.Context, src input.InputAdapter) ([]model.AppConfig, error) {
	configs, err := src.Import(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		if err := s.checkSound(c.SoundFileName); err != nil {
			return nil, fmt.Errorf("%s: %w", c.BundleIdentifier, err)
		}
	}
	if err := s.Store.AddAll(configs); err != nil {
		return nil, err
	}

	imported := make([]model.AppConfig, 0, len(configs))
	for _, c := range configs {
		if stored, ok := s.Store.Lookup(strings.TrimSpace(c.BundleIdentifier)); ok {
			imported = append(imported, stored)
		}
	}
	s.logger.Info("imported app configs", "source", src.Name(), "count", len(imported))
	return imported, nil
}

// UpdateApp persists c after checking its sound reference.
func (s *Services) UpdateApp(c model.AppConfig) error {
	if err := s.checkSound(c.SoundFileName); err != nil {
		return err
	}
	return s.Store.Update(c)
}

// checkSound rejects references to sounds that are not in the catalog.
// The sentinel is always accepted.
func (s *Services) checkSound(name string) error {
	if name == "" || name == model.NoSound {
		return nil
	}
	if !s.Library.Contains(name) {
		s.Library.Refresh()
		if !s.Library.Contains(name) {
			return fmt.Errorf("%w: %s", library.ErrSoundNotFound, name)
		}
	}
	return nil
}

// PlayPreview plays a sound and blocks until it ends or ctx is done.
func (s *Services) PlayPreview(ctx context.Context, name string, volume float64) error {
	return s.Engine.Preview(ctx, name, volume)
}

// DeleteSound removes a custom sound. Configs still referencing it keep the
// name and fail to resolve at playback.
func (s *Services) DeleteSound(name string) error {
	if err := s.Library.Delete(name); err != nil {
		return err
	}
	if n := SoundUsage(s.Store.List())[name]; n > 0 {
		s.logger.Warn("deleted sound is still referenced", "sound", name, "apps", n)
	}
	return nil
}

// Close tears the services down in reverse order of construction.
func (s *Services) Close() error {
	s.Engine.Close()
	s.Library.Close()
	return s.Store.Close()
}
