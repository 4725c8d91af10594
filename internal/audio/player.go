package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/jmylchreest/launchchime/internal/model"
)

// Engine errors.
var (
	ErrSoundUnresolved = errors.New("sound could not be resolved")
	ErrEngineClosed    = errors.New("audio engine is closed")
)

// Default output parameters.
const (
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond
)

// Source is a resolved sound asset.
type Source struct {
	Name string
	Ext  string // decoder selector, e.g. ".wav"
	Path string // display only; embedded assets have no real path
	Open func() (io.ReadCloser, error)
}

// Resolver maps a catalog name to a loadable Source.
type Resolver interface {
	Resolve(name string) (Source, error)
}

// Options configures an Engine.
type Options struct {
	SampleRate int
	Buffer     time.Duration
	Output     Output
}

// Engine plays catalog sounds through a single output device.
// Decoded sounds are cached by name for the life of the engine.
type Engine struct {
	mu       sync.Mutex
	resolver Resolver
	logger   *slog.Logger
	cache    map[string]*cachedSound
	closed   bool

	out        Output
	sampleRate beep.SampleRate
	bufferSize time.Duration
	initMu     sync.Mutex
	initErr    error
	inited     bool
}

// cachedSound holds a decoded sound and the control of its latest playback.
// mu serializes loading and restarts of one sound without blocking others.
type cachedSound struct {
	mu     sync.Mutex
	buffer *beep.Buffer
	ctrl   *beep.Ctrl
	path   string
}

// NewEngine creates an engine. The output device is opened on first playback.
func NewEngine(resolver Resolver, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Output == nil {
		opts.Output = Speaker()
	}

	return &Engine{
		resolver:   resolver,
		logger:     logger,
		cache:      make(map[string]*cachedSound),
		out:        opts.Output,
		sampleRate: beep.SampleRate(opts.SampleRate),
		bufferSize: opts.Buffer,
	}
}

// Play starts name at volume, restarting it from zero if it is already
// playing. Empty names and the NoSound sentinel are ignored.
func (e *Engine) Play(name string, volume float64) error {
	if !model.IsPlayableSound(name) {
		return nil
	}
	_, _, err := e.start(name, volume, nil)
	return err
}

// Preview plays name and blocks until it finishes or ctx is done.
func (e *Engine) Preview(ctx context.Context, name string, volume float64) error {
	if !model.IsPlayableSound(name) {
		return nil
	}

	done := make(chan struct{})
	entry, ctrl, err := e.start(name, volume, done)
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		entry.mu.Lock()
		if entry.ctrl == ctrl {
			e.detach(entry)
		}
		entry.mu.Unlock()
		return ctx.Err()
	}
}

// start loads name if needed and hands a fresh control to the output.
// When done is non-nil it is closed once playback ends or is interrupted.
func (e *Engine) start(name string, volume float64, done chan struct{}) (*cachedSound, *beep.Ctrl, error) {
	entry, err := e.entry(name)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.buffer == nil {
		if err := e.loadInto(name, entry); err != nil {
			e.logger.Warn("failed to load sound", "sound", name, "error", err)
			return nil, nil, err
		}
	}

	if err := e.ensureInitialized(); err != nil {
		return nil, nil, err
	}

	ctrl := &beep.Ctrl{Streamer: e.streamer(entry.buffer, volume)}

	e.detach(entry)
	entry.ctrl = ctrl

	if done != nil {
		e.out.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))
	} else {
		e.out.Play(ctrl)
	}

	e.logger.Debug("playing sound", "sound", name, "volume", volume)
	return entry, ctrl, nil
}

// entry returns the cache slot for name, creating an empty one if needed.
func (e *Engine) entry(name string) (*cachedSound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	entry, ok := e.cache[name]
	if !ok {
		entry = &cachedSound{}
		e.cache[name] = entry
	}
	return entry, nil
}

// loadInto resolves and decodes name. On failure the slot is dropped so a
// later request retries from scratch. Caller holds entry.mu.
func (e *Engine) loadInto(name string, entry *cachedSound) error {
	buffer, path, err := e.decode(name)
	if err != nil {
		e.mu.Lock()
		if e.cache[name] == entry {
			delete(e.cache, name)
		}
		e.mu.Unlock()
		return err
	}

	entry.buffer = buffer
	entry.path = path
	e.logger.Debug("cached sound", "sound", name, "path", path)
	return nil
}

func (e *Engine) decode(name string) (*beep.Buffer, string, error) {
	if e.resolver == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrSoundUnresolved, name)
	}
	src, err := e.resolver.Resolve(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrSoundUnresolved, name, err)
	}
	buffer, err := load(src)
	if err != nil {
		return nil, "", err
	}
	return buffer, src.Path, nil
}

// streamer builds a playback chain for buffer at the output rate and volume.
func (e *Engine) streamer(buffer *beep.Buffer, volume float64) beep.Streamer {
	var s beep.Streamer = buffer.Streamer(0, buffer.Len())

	if rate := buffer.Format().SampleRate; rate != e.sampleRate {
		s = beep.Resample(4, rate, e.sampleRate, s)
	}

	volume = model.ClampVolume(volume)
	if volume < 1.0 {
		s = &effects.Volume{
			Streamer: s,
			Base:     2,
			Volume:   math.Log2(volume),
			Silent:   volume == 0,
		}
	}
	return s
}

// detach silences the previous playback of entry. Caller holds entry.mu.
func (e *Engine) detach(entry *cachedSound) {
	if entry.ctrl == nil {
		return
	}
	e.out.Lock()
	entry.ctrl.Streamer = nil
	e.out.Unlock()
	entry.ctrl = nil
}

// ensureInitialized opens the output device once.
func (e *Engine) ensureInitialized() error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.inited {
		return nil
	}
	if e.initErr != nil {
		return e.initErr
	}

	bufferSize := e.sampleRate.N(e.bufferSize)
	if err := e.out.Init(e.sampleRate, bufferSize); err != nil {
		e.initErr = fmt.Errorf("failed to initialize speaker: %w", err)
		return e.initErr
	}

	e.inited = true
	e.logger.Debug("speaker initialized", "sample_rate", int(e.sampleRate))
	return nil
}

// Invalidate drops the cached decode of name.
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	_, ok := e.cache[name]
	delete(e.cache, name)
	e.mu.Unlock()

	if ok {
		e.logger.Debug("evicted cached sound", "sound", name)
	}
}

// Cached reports whether name has a decoded buffer in the cache.
func (e *Engine) Cached(name string) bool {
	e.mu.Lock()
	entry, ok := e.cache[name]
	e.mu.Unlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.buffer != nil
}

// Close stops all playback and releases the output device.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	entries := e.cache
	e.cache = make(map[string]*cachedSound)
	e.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		e.detach(entry)
		entry.mu.Unlock()
	}

	e.initMu.Lock()
	if e.inited {
		e.out.Close()
		e.inited = false
	}
	e.initMu.Unlock()

	e.logger.Debug("audio engine closed")
}
