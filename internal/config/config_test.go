package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
	assert.True(t, cfg.Sounds.Watch)
	assert.Equal(t, FeedSourceProcess, cfg.Feed.Source)
	assert.Equal(t, time.Second, cfg.Feed.PollInterval.Duration())
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Audio.Buffer.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[storage]
backend = "sqlite"
path = "/var/tmp/chime.db"

[sounds]
dir = "/srv/sounds"
watch = false

[feed]
source = "systemd"
poll_interval = "250ms"

[audio]
enabled = false
sample_rate = 48000
buffer = 50

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/tmp/chime.db", cfg.StoragePath())
	assert.Equal(t, "/srv/sounds", cfg.SoundsDir())
	assert.False(t, cfg.Sounds.Watch)
	assert.Equal(t, FeedSourceSystemd, cfg.Feed.Source)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.PollInterval.Duration())
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 50*time.Millisecond, cfg.Audio.Buffer.Duration())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nenabled = false\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Audio.Enabled)

	// Unchanged fields keep their defaults
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, FeedSourceProcess, cfg.Feed.Source)
	assert.True(t, cfg.Sounds.Watch)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[feed]\nsource = \"carrier-pigeon\"\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid feed source")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"source", func(c *Config) { c.Feed.Source = "" }},
		{"poll interval", func(c *Config) { c.Feed.PollInterval = Duration(time.Millisecond) }},
		{"sample rate low", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"sample rate high", func(c *Config) { c.Audio.SampleRate = 400000 }},
		{"buffer", func(c *Config) { c.Audio.Buffer = Duration(5 * time.Second) }},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Audio.Enabled = false
	cfg.Feed.PollInterval = Duration(2 * time.Second)

	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, loaded.Audio.Enabled)
	assert.Equal(t, 2*time.Second, loaded.Feed.PollInterval.Duration())
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1s", time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())

	cfg.Log.Level = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/launchchime/config.toml", ConfigPath())
}

func TestDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/launchchime", DataPath())
}

func TestDefaultLocations(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	cfg := DefaultConfig()
	assert.Equal(t, "/custom/data/launchchime/apps.json", cfg.StoragePath())
	assert.Equal(t, "/custom/data/launchchime/sounds", cfg.SoundsDir())

	cfg.Storage.Backend = "sqlite"
	assert.Equal(t, "/custom/data/launchchime/launchchime.db", cfg.StoragePath())

	cfg.Storage.Backend = "memory"
	assert.Empty(t, cfg.StoragePath())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	require.NoError(t, EnsureDataDir())

	info, err := os.Stat(filepath.Join(dir, "launchchime"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
