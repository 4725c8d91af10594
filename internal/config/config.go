// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/launchchime/internal/kv"
)

// AppName is used for XDG directory names.
const AppName = "launchchime"

// Default configuration values.
const (
	DefaultFeedSource   = FeedSourceProcess
	DefaultPollInterval = time.Second
	DefaultSampleRate   = 44100
	DefaultBuffer       = 100 * time.Millisecond
	DefaultLogLevel     = "info"
)

// Feed sources.
const (
	FeedSourceProcess = "process"
	FeedSourceSystemd = "systemd"
)

// ValidFeedSources returns all valid feed.source values.
func ValidFeedSources() []string {
	return []string{FeedSourceProcess, FeedSourceSystemd}
}

// Config represents the launchchime configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Sounds  SoundsConfig  `toml:"sounds"`
	Feed    FeedConfig    `toml:"feed"`
	Audio   AudioConfig   `toml:"audio"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects where app configurations and presets live.
type StorageConfig struct {
	Backend string `toml:"backend"` // file, sqlite, memory
	Path    string `toml:"path"`    // Empty = default under the data dir
}

// SoundsConfig holds the custom sound directory settings.
type SoundsConfig struct {
	Dir   string `toml:"dir"`   // Empty = default under the data dir
	Watch bool   `toml:"watch"` // Refresh the catalog on external changes
}

// FeedConfig selects the launch event source.
type FeedConfig struct {
	Source       string   `toml:"source"`        // process, systemd
	PollInterval Duration `toml:"poll_interval"` // process feed only
}

// AudioConfig contains playback settings.
type AudioConfig struct {
	Enabled    bool     `toml:"enabled"`
	SampleRate int      `toml:"sample_rate"`
	Buffer     Duration `toml:"buffer"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: string(kv.BackendFile),
		},
		Sounds: SoundsConfig{
			Watch: true,
		},
		Feed: FeedConfig{
			Source:       DefaultFeedSource,
			PollInterval: Duration(DefaultPollInterval),
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: DefaultSampleRate,
			Buffer:     Duration(DefaultBuffer),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName, "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName)
}

// StoragePath returns the configured store location, or the backend's
// default file under the data directory.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return expandPath(c.Storage.Path)
	}
	switch kv.Backend(c.Storage.Backend) {
	case kv.BackendSQLite:
		return filepath.Join(DataPath(), "launchchime.db")
	case kv.BackendMemory:
		return ""
	default:
		return filepath.Join(DataPath(), "apps.json")
	}
}

// SoundsDir returns the custom sound directory.
func (c *Config) SoundsDir() string {
	if c.Sounds.Dir != "" {
		return expandPath(c.Sounds.Dir)
	}
	return filepath.Join(DataPath(), "sounds")
}

// LogLevel maps log.level to a slog level. Unknown values map to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(kv.ValidBackends(), kv.Backend(c.Storage.Backend)) {
		return fmt.Errorf("invalid storage backend %q, must be one of: %v", c.Storage.Backend, kv.ValidBackends())
	}

	if !slices.Contains(ValidFeedSources(), c.Feed.Source) {
		return fmt.Errorf("invalid feed source %q, must be one of: %v", c.Feed.Source, ValidFeedSources())
	}
	if c.Feed.PollInterval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms, got %s", c.Feed.PollInterval.Duration())
	}

	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if b := c.Audio.Buffer.Duration(); b < 10*time.Millisecond || b > time.Second {
		return fmt.Errorf("buffer must be between 10ms and 1s, got %s", b)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
