package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyKV fails writes on demand.
type flakyKV struct {
	*kv.MemoryStore
	failSet bool
}

func (f *flakyKV) Set(key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(key, value)
}

func newTestStore(t *testing.T) (*Store, *kv.MemoryStore) {
	t.Helper()
	backend := kv.NewMemoryStore()
	s := NewStore(backend, nil)
	t.Cleanup(func() { s.Close() })
	return s, backend
}

func testConfig(t *testing.T, bundleID string) model.AppConfig {
	t.Helper()
	c, err := model.NewAppConfig("App "+bundleID, bundleID, "/opt/"+bundleID, "depth")
	require.NoError(t, err)
	return *c
}

func TestNewStore(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.List())
}

func TestStore_LoadMissing(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Load()
	assert.ErrorIs(t, err, ErrNoConfiguration)
	assert.Equal(t, 0, s.Count())
}

func TestStore_LoadCorrupt(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, backend.Set(ConfigKey, []byte(`{"not":"an array"}`)))

	err := s.Load()
	assert.ErrorIs(t, err, ErrDecodeFailure)
	assert.Equal(t, 0, s.Count())
}

func TestStore_LoadFillsMissingFields(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, backend.Set(ConfigKey, []byte(`[
		{"appName":"Editor","bundleIdentifier":"org.example.Editor","soundFileName":"chime.wav"},
		{"id":"x","appName":"Dup","bundleIdentifier":"org.example.Editor"},
		{"id":"y","appName":"Nameless"}
	]`)))

	require.NoError(t, s.Load())
	configs := s.List()
	require.Len(t, configs, 1)

	c := configs[0]
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsActivated)
	assert.Equal(t, 1.0, c.Volume)
	assert.Equal(t, "chime.wav", c.SoundFileName)

	// The sanitized set is written back.
	reloaded := NewStore(backend, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, configs, reloaded.List())
}

func TestStore_LoadNormalizesLegacySoundNames(t *testing.T) {
	s, backend := newTestStore(t)
	require.NoError(t, backend.Set(ConfigKey, []byte(`[
		{"id":"1","appName":"Cursor","bundleIdentifier":"com.cursor.Cursor","soundFileName":"depth.wav","isActivated":true,"volume":0.5},
		{"id":"2","appName":"Other","bundleIdentifier":"org.example.Other","soundFileName":"depth.wav","isActivated":true,"volume":1}
	]`)))

	require.NoError(t, s.Load())

	c, ok := s.Lookup("com.cursor.Cursor")
	require.True(t, ok)
	assert.Equal(t, "depth", c.SoundFileName)
	assert.Equal(t, 0.5, c.Volume)

	other, ok := s.Lookup("org.example.Other")
	require.True(t, ok)
	assert.Equal(t, "depth.wav", other.SoundFileName)

	// The rewrite is persisted.
	raw, err := backend.Get(ConfigKey)
	require.NoError(t, err)
	var persisted []map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 2)
	assert.Equal(t, "depth", persisted[0]["soundFileName"])
	assert.Equal(t, "depth.wav", persisted[1]["soundFileName"])
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, backend := newTestStore(t)

	for _, id := range []string{"com.a", "com.b", "com.c"} {
		require.NoError(t, s.Add(testConfig(t, id)))
	}
	c := testConfig(t, "com.d")
	c.IsActivated = false
	c.Volume = 0.25
	c.SoundFileName = model.NoSound
	require.NoError(t, s.Add(c))
	require.NoError(t, s.Save())

	other := NewStore(backend, nil)
	require.NoError(t, other.Load())
	assert.Equal(t, s.List(), other.List())
}

func TestStore_Add(t *testing.T) {
	s, _ := newTestStore(t)

	c := testConfig(t, "com.example.App")
	require.NoError(t, s.Add(c))
	assert.Equal(t, 1, s.Count())

	// Same bundle identifier, different record.
	dup := testConfig(t, "com.example.App")
	err := s.Add(dup)
	assert.ErrorIs(t, err, ErrDuplicateBundleIdentifier)
	assert.Equal(t, 1, s.Count())

	got, ok := s.Lookup("com.example.App")
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
}

func TestStore_AddAssignsIDAndClampsVolume(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(model.AppConfig{
		AppName:          "Loud",
		BundleIdentifier: "com.loud",
		SoundFileName:    "wooly",
		IsActivated:      true,
		Volume:           4,
	}))

	c, ok := s.Lookup("com.loud")
	require.True(t, ok)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1.0, c.Volume)
}

func TestStore_AddRejectsEmptyBundleID(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Add(model.AppConfig{ID: "x", BundleIdentifier: "  "})
	assert.ErrorIs(t, err, model.ErrEmptyBundleIdentifier)
	assert.Equal(t, 0, s.Count())
}

func TestStore_AddTrimsBundleID(t *testing.T) {
	s, _ := newTestStore(t)

	c := testConfig(t, "com.padded")
	c.BundleIdentifier = "  com.padded \t"
	require.NoError(t, s.Add(c))

	got, ok := s.Lookup("com.padded")
	require.True(t, ok)
	assert.Equal(t, "com.padded", got.BundleIdentifier)

	// Padding does not sneak a duplicate past the index.
	dup := testConfig(t, "com.padded")
	dup.BundleIdentifier = " com.padded"
	assert.ErrorIs(t, s.Add(dup), ErrDuplicateBundleIdentifier)
	assert.Equal(t, 1, s.Count())
}

func TestStore_AddAll(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(testConfig(t, "com.existing")))

	events := s.Subscribe()

	a := testConfig(t, "com.a")
	b := testConfig(t, " com.b ")
	b.Volume = -1
	require.NoError(t, s.AddAll([]model.AppConfig{a, b}))
	assert.Equal(t, 3, s.Count())

	got, ok := s.Lookup("com.b")
	require.True(t, ok)
	assert.NotEqual(t, b.ID, got.ID, "imported records get fresh ids")
	assert.Equal(t, 0.0, got.Volume)

	select {
	case e := <-events:
		assert.Equal(t, ChangeTypeAdd, e.Type)
		assert.Equal(t, 2, e.Count)
	default:
		t.Fatal("expected a change event")
	}

	require.NoError(t, s.AddAll(nil))
}

func TestStore_AddAllIsAtomic(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(testConfig(t, "com.existing")))
	before := s.List()

	tests := []struct {
		name  string
		batch []model.AppConfig
		want  error
	}{
		{"collides with store", []model.AppConfig{testConfig(t, "com.new"), testConfig(t, "com.existing")}, ErrDuplicateBundleIdentifier},
		{"repeats within batch", []model.AppConfig{testConfig(t, "com.x"), testConfig(t, "com.x")}, ErrDuplicateBundleIdentifier},
		{"empty bundle", []model.AppConfig{testConfig(t, "com.y"), {AppName: "blank"}}, model.ErrEmptyBundleIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.AddAll(tt.batch), tt.want)
			assert.Equal(t, before, s.List())
		})
	}
}

func TestStore_Update(t *testing.T) {
	s, _ := newTestStore(t)

	c := testConfig(t, "com.example.App")
	require.NoError(t, s.Add(c))

	c.SoundFileName = "sparse"
	c.Volume = -3
	require.NoError(t, s.Update(c))

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "sparse", got.SoundFileName)
	assert.Equal(t, 0.0, got.Volume)

	missing := testConfig(t, "com.missing")
	assert.ErrorIs(t, s.Update(missing), ErrConfigNotFound)
}

func TestStore_UpdateBundleCollision(t *testing.T) {
	s, _ := newTestStore(t)

	a := testConfig(t, "com.a")
	b := testConfig(t, "com.b")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	b.BundleIdentifier = "com.a"
	assert.ErrorIs(t, s.Update(b), ErrDuplicateBundleIdentifier)

	// Renaming to a free identifier moves the lookup key.
	b.BundleIdentifier = "com.c"
	require.NoError(t, s.Update(b))
	_, ok := s.Lookup("com.b")
	assert.False(t, ok)
	_, ok = s.Lookup("com.c")
	assert.True(t, ok)
}

func TestStore_UpdateTrimsBundleID(t *testing.T) {
	s, _ := newTestStore(t)

	a := testConfig(t, "com.a")
	b := testConfig(t, "com.b")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	b.BundleIdentifier = " com.a "
	assert.ErrorIs(t, s.Update(b), ErrDuplicateBundleIdentifier)

	b.BundleIdentifier = " com.x"
	require.NoError(t, s.Update(b))
	got, ok := s.Lookup("com.x")
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "com.x", got.BundleIdentifier)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)

	a := testConfig(t, "com.a")
	b := testConfig(t, "com.b")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	require.NoError(t, s.Delete(a.ID))
	assert.Equal(t, 1, s.Count())
	_, ok := s.Lookup("com.a")
	assert.False(t, ok)

	got, ok := s.Lookup("com.b")
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)

	assert.ErrorIs(t, s.Delete(a.ID), ErrConfigNotFound)
}

func TestStore_DeleteIndices(t *testing.T) {
	s, _ := newTestStore(t)

	for _, id := range []string{"com.a", "com.b", "com.c", "com.d"} {
		require.NoError(t, s.Add(testConfig(t, id)))
	}

	require.NoError(t, s.DeleteIndices([]int{0, 2, 2, 9, -1}))

	remaining := s.List()
	require.Len(t, remaining, 2)
	assert.Equal(t, "com.b", remaining[0].BundleIdentifier)
	assert.Equal(t, "com.d", remaining[1].BundleIdentifier)

	// Nothing valid to delete
	require.NoError(t, s.DeleteIndices([]int{7}))
	assert.Equal(t, 2, s.Count())
}

func TestStore_ResetToDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(testConfig(t, "com.custom")))

	require.NoError(t, s.ResetToDefaults())

	configs := s.List()
	require.Len(t, configs, 3)
	assert.Equal(t, "com.cursor.Cursor", configs[0].BundleIdentifier)
	assert.Equal(t, "depth", configs[0].SoundFileName)
	assert.Equal(t, "com.example.Windsurf", configs[1].BundleIdentifier)
	assert.Equal(t, "wooly", configs[1].SoundFileName)
	assert.Equal(t, "com.microsoft.VSCode", configs[2].BundleIdentifier)
	assert.Equal(t, "sparse", configs[2].SoundFileName)
	for _, c := range configs {
		assert.True(t, c.IsActivated)
		assert.Equal(t, 1.0, c.Volume)
	}

	_, ok := s.Lookup("com.custom")
	assert.False(t, ok)
}

func TestStore_FailedWriteLeavesStateUnchanged(t *testing.T) {
	backend := &flakyKV{MemoryStore: kv.NewMemoryStore()}
	s := NewStore(backend, nil)
	defer s.Close()

	a := testConfig(t, "com.a")
	require.NoError(t, s.Add(a))
	before := s.List()

	backend.failSet = true

	assert.Error(t, s.Add(testConfig(t, "com.b")))
	assert.Error(t, s.AddAll([]model.AppConfig{testConfig(t, "com.b")}))
	a2 := a
	a2.Volume = 0.1
	assert.Error(t, s.Update(a2))
	assert.Error(t, s.Delete(a.ID))
	assert.Error(t, s.ResetToDefaults())

	assert.Equal(t, before, s.List())
	_, ok := s.Lookup("com.b")
	assert.False(t, ok)
}

func TestStore_Reload(t *testing.T) {
	backend := kv.NewMemoryStore()
	daemon := NewStore(backend, nil)
	cli := NewStore(backend, nil)

	require.NoError(t, cli.Add(testConfig(t, "com.a")))
	assert.Equal(t, 0, daemon.Count())

	require.NoError(t, daemon.Reload())
	assert.Equal(t, 1, daemon.Count())

	// A vanished blob keeps what we have.
	require.NoError(t, backend.Delete(ConfigKey))
	assert.ErrorIs(t, daemon.Reload(), ErrNoConfiguration)
	assert.Equal(t, 1, daemon.Count())
}

func TestStore_Subscribe(t *testing.T) {
	s, _ := newTestStore(t)

	ch := s.Subscribe()
	require.NoError(t, s.Add(testConfig(t, "com.a")))

	select {
	case event := <-ch:
		assert.Equal(t, ChangeTypeAdd, event.Type)
		assert.Equal(t, 1, event.Count)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change event")
	}

	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestStore_Close(t *testing.T) {
	s := NewStore(kv.NewMemoryStore(), nil)
	ch := s.Subscribe()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, s.Add(testConfig(t, "com.a")), ErrStoreClosed)
}

func TestBlobWatcher_ReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	daemonKV, err := kv.NewFileStore(path)
	require.NoError(t, err)
	daemon := NewStore(daemonKV, nil)
	defer daemon.Close()

	w, err := NewBlobWatcher(daemon, path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	cliKV, err := kv.NewFileStore(path)
	require.NoError(t, err)
	cli := NewStore(cliKV, nil)
	require.NoError(t, cli.Add(testConfig(t, "com.a")))

	assert.Eventually(t, func() bool {
		_, ok := daemon.Lookup("com.a")
		return ok
	}, 2*time.Second, 20*time.Millisecond)
}
