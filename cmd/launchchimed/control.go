package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmylchreest/launchchime/internal/core"
	"github.com/jmylchreest/launchchime/internal/daemon"
	"github.com/jmylchreest/launchchime/internal/dbus"
	"github.com/jmylchreest/launchchime/internal/launch"
)

// daemonControl implements dbus.Controller over the running daemon.
type daemonControl struct {
	dispatcher *daemon.Dispatcher
	svc        *core.Services
	manual     *launch.ManualFeed
	watcher    *daemon.ConfigWatcher

	mu   sync.Mutex
	feed string
}

func (c *daemonControl) setFeed(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feed = name
}

func (c *daemonControl) Status() dbus.Status {
	c.mu.Lock()
	feed := c.feed
	c.mu.Unlock()

	return dbus.Status{
		State:   c.dispatcher.State().String(),
		Enabled: c.dispatcher.Enabled(),
		Apps:    c.svc.Store.Count(),
		Feed:    feed,
		Version: version,
	}
}

func (c *daemonControl) SetEnabled(enabled bool) {
	c.dispatcher.SetEnabled(enabled)
}

func (c *daemonControl) Simulate(bundleID string) error {
	bundleID = strings.TrimSpace(bundleID)
	if bundleID == "" {
		return errors.New("bundle id is required")
	}
	if state := c.dispatcher.State(); state != daemon.StateActive {
		return fmt.Errorf("dispatcher is %s", state)
	}
	c.manual.Emit(launch.Event{BundleID: bundleID, Name: bundleID})
	return nil
}

func (c *daemonControl) Reload() error {
	if err := c.svc.Store.Reload(); err != nil {
		return fmt.Errorf("failed to reload app configurations: %w", err)
	}
	c.svc.Library.Refresh()
	return c.watcher.Reload()
}
