package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/launchchime/internal/launch"
	"github.com/jmylchreest/launchchime/internal/model"
)

// DefaultQueueSize is the number of launch events buffered ahead of the
// dispatch goroutine.
const DefaultQueueSize = 64

// ErrDispatcherStopped is returned when starting a stopped dispatcher.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// ConfigLookup finds the configuration for a bundle identifier.
type ConfigLookup interface {
	Lookup(bundleID string) (model.AppConfig, bool)
}

// Player plays named sounds. Play must not block on playback.
type Player interface {
	Play(name string, volume float64) error
	Close()
}

// State is the lifecycle state of a Dispatcher.
type State int32

const (
	// StateIdle means the dispatcher has not been started.
	StateIdle State = iota
	// StateActive means the dispatcher is subscribed to a feed.
	StateActive
	// StateStopped means the dispatcher was torn down.
	StateStopped
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Dispatcher turns launch events into chimes. Events are handled one at a
// time on a single goroutine in arrival order.
type Dispatcher struct {
	lookup ConfigLookup
	player Player
	logger *slog.Logger

	enabled atomic.Bool

	mu     sync.Mutex
	state  State
	sub    launch.Subscription
	events chan launch.Event
	stopCh chan struct{}
	doneCh chan struct{}

	stopOnce sync.Once
}

// NewDispatcher creates an idle dispatcher with playback enabled.
func NewDispatcher(lookup ConfigLookup, player Player, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		lookup: lookup,
		player: player,
		logger: logger,
		events: make(chan launch.Event, DefaultQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	d.enabled.Store(true)
	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetEnabled turns playback on or off without unsubscribing.
func (d *Dispatcher) SetEnabled(enabled bool) {
	if d.enabled.Swap(enabled) != enabled {
		d.logger.Info("playback toggled", "enabled", enabled)
	}
}

// Enabled reports whether playback is on.
func (d *Dispatcher) Enabled() bool {
	return d.enabled.Load()
}

// Start subscribes to feed and begins dispatching. Starting an active
// dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context, feed launch.Feed) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateActive:
		return nil
	case StateStopped:
		return ErrDispatcherStopped
	}

	// Events arriving before run starts wait in the buffer.
	sub, err := feed.Subscribe(ctx, d.enqueue)
	if err != nil {
		return err
	}
	go d.run()

	d.sub = sub
	d.state = StateActive
	d.logger.Debug("dispatcher started")
	return nil
}

// enqueue is the feed handler. It never blocks the feed.
func (d *Dispatcher) enqueue(e launch.Event) {
	select {
	case d.events <- e:
	default:
		d.logger.Warn("dispatch queue full, dropping launch event", "bundle_id", e.BundleID)
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	for {
		select {
		case e := <-d.events:
			d.handle(e)
		case <-d.stopCh:
			for {
				select {
				case e := <-d.events:
					d.handle(e)
				default:
					return
				}
			}
		}
	}
}

// handle plays the configured sound for one launch event.
func (d *Dispatcher) handle(e launch.Event) {
	if e.BundleID == "" {
		d.logger.Warn("dropping launch event without bundle identifier", "name", e.Name, "pid", e.PID)
		return
	}

	cfg, ok := d.lookup.Lookup(e.BundleID)
	if !ok {
		d.logger.Debug("no configuration for launched app", "bundle_id", e.BundleID)
		return
	}
	if !cfg.ShouldPlay() {
		d.logger.Debug("app configured silent", "bundle_id", e.BundleID, "activated", cfg.IsActivated)
		return
	}
	if !d.enabled.Load() {
		d.logger.Debug("playback disabled", "bundle_id", e.BundleID)
		return
	}

	d.logger.Debug("playing launch sound", "bundle_id", e.BundleID, "sound", cfg.SoundFileName, "volume", cfg.Volume)
	if err := d.player.Play(cfg.SoundFileName, cfg.Volume); err != nil {
		d.logger.Warn("failed to play launch sound", "bundle_id", e.BundleID, "sound", cfg.SoundFileName, "error", err)
	}
}

// Stop unsubscribes from the feed, handles events already queued and
// closes the player. Only the first call has any effect.
func (d *Dispatcher) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.mu.Lock()
		wasActive := d.state == StateActive
		d.state = StateStopped
		sub := d.sub
		d.sub = nil
		d.mu.Unlock()

		if sub != nil {
			err = sub.Unsubscribe()
		}
		if wasActive {
			close(d.stopCh)
			<-d.doneCh
		}
		d.player.Close()
		d.logger.Debug("dispatcher stopped")
	})
	return err
}
