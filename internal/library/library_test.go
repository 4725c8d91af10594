package library

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/launchchime/internal/audio"
	"github.com/jmylchreest/launchchime/internal/model"
)

// writeWAV writes a silent mono WAV of length d.
const testRate = beep.SampleRate(8000)

func writeWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()
	writeWAVSamples(t, path, testRate.N(d))
}

// writeWAVSamples writes n samples of mono silence at testRate.
func writeWAVSamples(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: testRate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, generators.Silence(n), format))
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib := New(filepath.Join(t.TempDir(), "sounds"), nil)
	t.Cleanup(lib.Close)
	return lib
}

// dirEntries lists every entry in dir, hidden ones included.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCatalog_BuiltinsWithoutDirectory(t *testing.T) {
	lib := newTestLibrary(t)

	assert.Equal(t, []string{model.NoSound, "depth", "sparse", "wooly"}, lib.Catalog())
	_, err := os.Stat(lib.Dir())
	assert.True(t, os.IsNotExist(err), "directory is created lazily")
}

func TestRefresh_FiltersCustomDirectory(t *testing.T) {
	lib := newTestLibrary(t)
	dir := lib.Dir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.wav"), 0755))

	writeWAV(t, filepath.Join(dir, "beep.wav"), 100*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alarm.MP3"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".import-123.wav"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "None"), []byte("x"), 0644))

	catalog := lib.Refresh()
	assert.Equal(t, []string{model.NoSound, "alarm.MP3", "beep.wav", "depth", "sparse", "wooly"}, catalog)
	assert.True(t, lib.Contains("beep.wav"))
	assert.False(t, lib.Contains("notes.txt"))
}

func TestImport(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "ping.wav")
	writeWAV(t, src, time.Second)

	asset, err := lib.Import(src)
	require.NoError(t, err)
	assert.Equal(t, "ping.wav", asset.Name)
	assert.False(t, asset.Builtin)
	assert.Equal(t, filepath.Join(lib.Dir(), "ping.wav"), asset.Path)
	assert.Positive(t, asset.Size)

	assert.Contains(t, lib.Catalog(), "ping.wav")
	assert.Equal(t, model.NoSound, lib.Catalog()[0])
	assert.Equal(t, []string{"ping.wav"}, dirEntries(t, lib.Dir()))
}

func TestImport_TooLong(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "song.wav")
	writeWAV(t, src, 4*time.Second)
	before := lib.Catalog()

	_, err := lib.Import(src)
	require.ErrorIs(t, err, ErrSoundTooLong)

	var tooLong *SoundTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.InDelta(t, float64(4*time.Second), float64(tooLong.Duration), float64(10*time.Millisecond))
	assert.Equal(t, MaxDuration, tooLong.Limit)

	assert.Equal(t, before, lib.Catalog())
	assert.Empty(t, dirEntries(t, lib.Dir()), "no partial file left behind")
}

func TestImport_AtLimit(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "edge.wav")
	writeWAV(t, src, MaxDuration)

	asset, err := lib.Import(src)
	require.NoError(t, err)
	assert.Equal(t, "edge.wav", asset.Name)
	assert.Contains(t, lib.Catalog(), "edge.wav")
}

func TestImport_OneSampleOverLimit(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "edge.wav")
	writeWAVSamples(t, src, testRate.N(MaxDuration)+1)

	_, err := lib.Import(src)
	require.ErrorIs(t, err, ErrSoundTooLong)
	assert.NotContains(t, lib.Catalog(), "edge.wav")
}

func TestImport_DuplicateName(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, os.MkdirAll(lib.Dir(), 0755))
	existing := filepath.Join(lib.Dir(), "ping.wav")
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0644))

	src := filepath.Join(t.TempDir(), "ping.wav")
	writeWAV(t, src, 100*time.Millisecond)

	_, err := lib.Import(src)
	assert.ErrorIs(t, err, ErrDuplicateSoundName)

	content, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
}

func TestImport_Rejections(t *testing.T) {
	lib := newTestLibrary(t)
	dir := t.TempDir()

	txt := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0644))
	_, err := lib.Import(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	corrupt := filepath.Join(dir, "broken.wav")
	require.NoError(t, os.WriteFile(corrupt, []byte("not audio at all"), 0644))
	_, err = lib.Import(corrupt)
	assert.ErrorIs(t, err, ErrDurationProbeFailure)

	_, err = lib.Import(filepath.Join(dir, "missing.ogg"))
	assert.ErrorIs(t, err, ErrDurationProbeFailure)

	assert.Empty(t, dirEntries(t, lib.Dir()))
}

func TestImport_ConcurrentSameNameHasOneWinner(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "race.wav")
	writeWAV(t, src, 500*time.Millisecond)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = lib.Import(src)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateSoundName)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, []string{"race.wav"}, dirEntries(t, lib.Dir()))
}

func TestImportAsync(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "async.wav")
	writeWAV(t, src, 200*time.Millisecond)

	res, ok := <-lib.ImportAsync(src)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "async.wav", res.Asset.Name)

	// Exactly one value.
	ch := lib.ImportAsync(src)
	res, ok = <-ch
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, ErrDuplicateSoundName)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestImportAsync_AfterClose(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "sounds"), nil)
	lib.Close()

	res := <-lib.ImportAsync("/tmp/whatever.wav")
	assert.ErrorIs(t, res.Err, ErrLibraryClosed)

	_, err := lib.Import("/tmp/whatever.wav")
	assert.ErrorIs(t, err, ErrLibraryClosed)
}

func TestDelete(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "gone.wav")
	writeWAV(t, src, 100*time.Millisecond)
	_, err := lib.Import(src)
	require.NoError(t, err)

	var removed []string
	lib.OnRemove(func(name string) { removed = append(removed, name) })

	require.NoError(t, lib.Delete("gone.wav"))
	assert.NotContains(t, lib.Catalog(), "gone.wav")
	assert.Equal(t, []string{"gone.wav"}, removed)

	assert.ErrorIs(t, lib.Delete("gone.wav"), ErrSoundNotFound)
}

func TestDelete_Rejections(t *testing.T) {
	lib := newTestLibrary(t)

	for _, name := range BundledSounds {
		assert.ErrorIs(t, lib.Delete(name), ErrBuiltinSound)
	}
	assert.ErrorIs(t, lib.Delete(model.NoSound), ErrSoundNotFound)
	assert.ErrorIs(t, lib.Delete(""), ErrSoundNotFound)
	assert.ErrorIs(t, lib.Delete("../escape.wav"), ErrSoundNotFound)
	assert.Equal(t, []string{model.NoSound, "depth", "sparse", "wooly"}, lib.Catalog())
}

func TestResolve_Builtin(t *testing.T) {
	lib := newTestLibrary(t)

	for _, name := range BundledSounds {
		src, err := lib.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, BuiltinExt, src.Ext)

		rc, err := src.Open()
		require.NoError(t, err)
		streamer, format, err := audio.Decode(rc, src.Ext)
		require.NoError(t, err)
		assert.Positive(t, streamer.Len())
		assert.LessOrEqual(t, format.SampleRate.D(streamer.Len()), MaxDuration)
		streamer.Close()
	}
}

func TestResolve_Custom(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Resolve("absent.wav")
	assert.ErrorIs(t, err, ErrSoundNotFound)
	_, err = lib.Resolve(model.NoSound)
	assert.ErrorIs(t, err, ErrSoundNotFound)
	_, err = lib.Resolve("depth.wav")
	assert.ErrorIs(t, err, ErrSoundNotFound)

	src := filepath.Join(t.TempDir(), "mine.wav")
	writeWAV(t, src, 100*time.Millisecond)
	_, err = lib.Import(src)
	require.NoError(t, err)

	resolved, err := lib.Resolve("mine.wav")
	require.NoError(t, err)
	assert.Equal(t, ".wav", resolved.Ext)
	assert.Equal(t, filepath.Join(lib.Dir(), "mine.wav"), resolved.Path)
}

func TestAssets(t *testing.T) {
	lib := newTestLibrary(t)
	src := filepath.Join(t.TempDir(), "zz.wav")
	writeWAV(t, src, 100*time.Millisecond)
	_, err := lib.Import(src)
	require.NoError(t, err)

	assets := lib.Assets()
	require.Len(t, assets, 4)
	for _, a := range assets {
		assert.NotEqual(t, model.NoSound, a.Name)
		assert.Positive(t, a.Size, a.Name)
		assert.Equal(t, IsBuiltin(a.Name), a.Builtin)
	}
	assert.Equal(t, "zz.wav", assets[3].Name)
}

func TestWatcher_TracksExternalChanges(t *testing.T) {
	lib := newTestLibrary(t)

	var mu sync.Mutex
	var removed []string
	lib.OnRemove(func(name string) {
		mu.Lock()
		removed = append(removed, name)
		mu.Unlock()
	})

	w, err := NewWatcher(lib, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(lib.Dir(), "dropped.wav")
	writeWAV(t, path, 100*time.Millisecond)

	assert.Eventually(t, func() bool { return lib.Contains("dropped.wav") },
		2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool { return !lib.Contains("dropped.wav") },
		2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range removed {
			if n == "dropped.wav" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
