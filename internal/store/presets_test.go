package store

import (
	"testing"

	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ListPresets_DefaultFirst(t *testing.T) {
	s, _ := newTestStore(t)

	names, err := s.ListPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPresetName}, names)

	require.NoError(t, s.SavePreset("work"))
	require.NoError(t, s.SavePreset("Alpha"))
	require.NoError(t, s.SavePreset("zen"))

	names, err = s.ListPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPresetName, "Alpha", "work", "zen"}, names)
}

func TestStore_SavePreset_Rejections(t *testing.T) {
	s, _ := newTestStore(t)

	tests := []struct {
		name    string
		preset  string
		wantErr error
	}{
		{"empty", "", ErrEmptyPresetName},
		{"whitespace", "  \t ", ErrEmptyPresetName},
		{"reserved", DefaultPresetName, ErrReservedPresetName},
		{"reserved padded", " Default ", ErrReservedPresetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.SavePreset(tt.preset), tt.wantErr)
		})
	}
}

func TestStore_SaveAndLoadPreset(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(testConfig(t, "com.a")))
	require.NoError(t, s.Add(testConfig(t, "com.b")))
	snapshot := s.List()
	require.NoError(t, s.SavePreset("work"))

	require.NoError(t, s.ResetToDefaults())
	assert.Equal(t, 3, s.Count())

	require.NoError(t, s.LoadPreset("work"))
	assert.Equal(t, snapshot, s.List())

	// The loaded preset became the live set.
	other := NewStore(s.kv, nil)
	require.NoError(t, other.Load())
	assert.Equal(t, snapshot, other.List())
}

func TestStore_LoadPreset_DefaultIgnoresSavedBlob(t *testing.T) {
	s, backend := newTestStore(t)

	// Something wrote a blob under the reserved name directly.
	require.NoError(t, backend.Set(presetKey(DefaultPresetName),
		[]byte(`[{"id":"z","bundleIdentifier":"com.hijack","soundFileName":"x.wav"}]`)))

	require.NoError(t, s.LoadPreset(DefaultPresetName))

	configs := s.List()
	require.Len(t, configs, 3)
	_, ok := s.Lookup("com.hijack")
	assert.False(t, ok)
	_, ok = s.Lookup("com.cursor.Cursor")
	assert.True(t, ok)

	names, err := s.ListPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPresetName}, names)
}

func TestStore_LoadPreset_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(testConfig(t, "com.a")))
	before := s.List()

	assert.ErrorIs(t, s.LoadPreset("nope"), ErrPresetNotFound)
	assert.Equal(t, before, s.List())
}

func TestStore_LoadPreset_Normalizes(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, backend.Set(presetKey("legacy"),
		[]byte(`[{"id":"1","appName":"VS Code","bundleIdentifier":"com.microsoft.VSCode","soundFileName":"sparse.wav","isActivated":true,"volume":0.7}]`)))

	require.NoError(t, s.LoadPreset("legacy"))

	c, ok := s.Lookup("com.microsoft.VSCode")
	require.True(t, ok)
	assert.Equal(t, "sparse", c.SoundFileName)
	assert.Equal(t, 0.7, c.Volume)
}

func TestStore_DeletePreset(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SavePreset("work"))

	assert.ErrorIs(t, s.DeletePreset(DefaultPresetName), ErrReservedPresetName)
	assert.ErrorIs(t, s.DeletePreset("missing"), ErrPresetNotFound)

	require.NoError(t, s.DeletePreset("work"))
	names, err := s.ListPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPresetName}, names)

	assert.ErrorIs(t, s.LoadPreset("work"), ErrPresetNotFound)
}

func TestStore_PresetsSurviveBackendReopen(t *testing.T) {
	path := t.TempDir() + "/store.json"

	backend, err := kv.NewFileStore(path)
	require.NoError(t, err)
	s := NewStore(backend, nil)
	require.NoError(t, s.ResetToDefaults())
	require.NoError(t, s.SavePreset("home"))
	require.NoError(t, s.Close())

	reopened, err := kv.NewFileStore(path)
	require.NoError(t, err)
	s2 := NewStore(reopened, nil)
	defer s2.Close()

	require.NoError(t, s2.Load())
	assert.Equal(t, 3, s2.Count())

	names, err := s2.ListPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultPresetName, "home"}, names)
}
