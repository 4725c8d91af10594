// Package main is the entry point for the launchchimed daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/launchchime/internal/config"
	"github.com/jmylchreest/launchchime/internal/core"
	"github.com/jmylchreest/launchchime/internal/daemon"
	"github.com/jmylchreest/launchchime/internal/dbus"
	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/launch"
	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/launchchime/config.toml)")
	flag.Parse()

	if *showVersion {
		fmt.Println("launchchimed version", version)
		os.Exit(0)
	}

	// The level is swapped on config reload.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	applyLogLevel(level, cfg, *debug)

	if err := run(cfg, *configPath, level, *debug, logger); err != nil {
		logger.Error("launchchimed failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, level *slog.LevelVar, debug bool, logger *slog.Logger) error {
	logger.Info("starting launchchimed", "version", version, "feed", cfg.Feed.Source)

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	svc, err := core.Open(cfg, core.Options{}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("failed to close services", "error", err)
		}
	}()
	logger.Info("app configurations loaded", "count", svc.Store.Count(), "seeded", svc.Seeded)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Pick up edits made by the CLI while we run.
	if kv.Backend(cfg.Storage.Backend) != kv.BackendMemory {
		blobWatcher, err := store.NewBlobWatcher(svc.Store, cfg.StoragePath(), logger)
		if err != nil {
			logger.Warn("failed to create store watcher", "error", err)
		} else if err := blobWatcher.Start(); err != nil {
			logger.Warn("failed to start store watcher", "error", err)
		} else {
			defer blobWatcher.Stop()
		}
	}

	if cfg.Sounds.Watch {
		soundWatcher, err := library.NewWatcher(svc.Library, logger)
		if err != nil {
			logger.Warn("failed to create sound directory watcher", "error", err)
		} else if err := soundWatcher.Start(); err != nil {
			logger.Warn("failed to start sound directory watcher", "error", err, "dir", svc.Library.Dir())
		} else {
			defer soundWatcher.Stop()
		}
	}

	dispatcher := daemon.NewDispatcher(svc.Store, svc.Engine, logger)
	dispatcher.SetEnabled(cfg.Audio.Enabled)
	// Stop closes the engine; the deferred svc.Close tolerates that.
	defer dispatcher.Stop()

	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newConfig *config.Config) {
		dispatcher.SetEnabled(newConfig.Audio.Enabled)
		applyLogLevel(level, newConfig, debug)
		if restartRequired(cfg, newConfig) {
			logger.Warn("storage, sounds, feed or audio device settings changed; restart launchchimed to apply them")
		}
	})
	configWatcher.SetErrorCallback(func(err error) {
		logger.Warn("keeping previous configuration", "error", err)
	})

	control := &daemonControl{
		dispatcher: dispatcher,
		svc:        svc,
		manual:     launch.NewManualFeed(),
		watcher:    configWatcher,
	}

	server := dbus.NewControlServer(control, logger)
	if err := server.Start(); err != nil {
		if errors.Is(err, dbus.ErrAlreadyRunning) {
			return err
		}
		logger.Warn("control interface unavailable", "error", err)
	} else {
		defer server.Stop()
	}

	feedName, err := startDispatcher(ctx, dispatcher, control.manual, cfg, logger)
	if err != nil {
		return err
	}
	control.setFeed(feedName)

	if err := configWatcher.Start(ctx, cfg); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	} else {
		defer configWatcher.Stop()
	}

	logger.Info("launchchimed running", "state", dispatcher.State(), "feed", feedName)
	<-ctx.Done()
	logger.Info("received signal, shutting down")
	return nil
}

// startDispatcher subscribes to the configured feed merged with the manual
// feed used by Simulate. When the systemd manager is unreachable it falls
// back to polling the process table. It returns the name of the feed in use.
func startDispatcher(ctx context.Context, d *daemon.Dispatcher, manual *launch.ManualFeed, cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Feed.Source == config.FeedSourceSystemd {
		err := d.Start(ctx, launch.Merge(dbus.NewUnitMonitor(logger), manual))
		if err == nil {
			return config.FeedSourceSystemd, nil
		}
		logger.Warn("systemd feed unavailable, falling back to process polling", "error", err)
	}

	processFeed := launch.NewProcessFeed(nil, logger)
	processFeed.SetPollInterval(cfg.Feed.PollInterval.Duration())
	if err := d.Start(ctx, launch.Merge(processFeed, manual)); err != nil {
		return "", fmt.Errorf("failed to start launch feed: %w", err)
	}
	return config.FeedSourceProcess, nil
}

func applyLogLevel(level *slog.LevelVar, cfg *config.Config, debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(cfg.LogLevel())
}

// restartRequired reports whether next changes settings that are only read
// at startup.
func restartRequired(current, next *config.Config) bool {
	return current.Storage != next.Storage ||
		current.Sounds != next.Sounds ||
		current.Feed != next.Feed ||
		current.Audio.SampleRate != next.Audio.SampleRate ||
		current.Audio.Buffer != next.Audio.Buffer
}
