package store

import (
	"log/slog"
	"testing"

	"github.com/jmylchreest/launchchime/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		bundleID string
		sound    string
		want     string
		changed  bool
	}{
		{"cursor legacy", "com.cursor.Cursor", "depth.wav", "depth", true},
		{"windsurf legacy", "com.example.Windsurf", "wooly.wav", "wooly", true},
		{"vscode legacy", "com.microsoft.VSCode", "sparse.wav", "sparse", true},
		{"already canonical", "com.cursor.Cursor", "depth", "depth", false},
		{"other default sound", "com.cursor.Cursor", "wooly.wav", "wooly.wav", false},
		{"unrelated app", "org.example.Editor", "depth.wav", "depth.wav", false},
		{"custom sound", "com.microsoft.VSCode", "beep.mp3", "beep.mp3", false},
		{"no sound", "com.example.Windsurf", model.NoSound, model.NoSound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configs := []model.AppConfig{{ID: "1", BundleIdentifier: tt.bundleID, SoundFileName: tt.sound}}

			n := Normalize(configs)
			assert.Equal(t, tt.want, configs[0].SoundFileName)
			if tt.changed {
				assert.Equal(t, 1, n)
			} else {
				assert.Equal(t, 0, n)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	configs := []model.AppConfig{
		{ID: "1", BundleIdentifier: "com.cursor.Cursor", SoundFileName: "depth.wav"},
		{ID: "2", BundleIdentifier: "com.example.Windsurf", SoundFileName: "wooly.wav"},
		{ID: "3", BundleIdentifier: "org.example.Other", SoundFileName: "depth.wav"},
	}

	assert.Equal(t, 2, Normalize(configs))
	once := append([]model.AppConfig(nil), configs...)

	assert.Equal(t, 0, Normalize(configs))
	assert.Equal(t, once, configs)
}

func TestNormalizationRules_Ordered(t *testing.T) {
	rules := NormalizationRules()
	require.NotEmpty(t, rules)
	for i := 1; i < len(rules); i++ {
		assert.Less(t, rules[i-1].Version, rules[i].Version)
	}
	assert.Equal(t, 1, rules[0].Version)
}

func TestSanitize(t *testing.T) {
	in := []model.AppConfig{
		{ID: "1", BundleIdentifier: "com.a"},
		{ID: "2", BundleIdentifier: ""},
		{ID: "3", BundleIdentifier: "com.a"},
		{BundleIdentifier: "com.b"},
	}

	out, changed := sanitize(in, slog.Default())
	assert.True(t, changed)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "com.b", out[1].BundleIdentifier)
	assert.NotEmpty(t, out[1].ID)

	out2, changed := sanitize(out, slog.Default())
	assert.False(t, changed)
	assert.Equal(t, out, out2)
}

func TestDefaultConfigs_FreshIDs(t *testing.T) {
	a, err := DefaultConfigs()
	require.NoError(t, err)
	b, err := DefaultConfigs()
	require.NoError(t, err)

	require.Len(t, a, 3)
	for i := range a {
		assert.NotEqual(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].BundleIdentifier, b[i].BundleIdentifier)
	}
}
