package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrNotRunning is returned when no daemon owns the control bus name.
var ErrNotRunning = errors.New("launchchimed is not running")

// ControlClient calls a running daemon's control interface.
type ControlClient struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a session bus connection and checks the daemon is present.
func Connect(ctx context.Context) (*ControlClient, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	err = conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, ControlBusName).Store(&owned)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !owned {
		conn.Close()
		return nil, ErrNotRunning
	}

	return &ControlClient{
		conn: conn,
		obj:  conn.Object(ControlBusName, ControlPath),
	}, nil
}

// Status fetches the daemon status.
func (c *ControlClient) Status(ctx context.Context) (Status, error) {
	var m map[string]dbus.Variant
	if err := c.obj.CallWithContext(ctx, ControlInterface+".GetStatus", 0).Store(&m); err != nil {
		return Status{}, fmt.Errorf("GetStatus: %w", err)
	}
	return ParseStatus(m), nil
}

// SetEnabled toggles playback in the daemon.
func (c *ControlClient) SetEnabled(ctx context.Context, enabled bool) error {
	if err := c.obj.CallWithContext(ctx, ControlInterface+".SetEnabled", 0, enabled).Err; err != nil {
		return fmt.Errorf("SetEnabled: %w", err)
	}
	return nil
}

// Simulate asks the daemon to handle a launch of bundleID.
func (c *ControlClient) Simulate(ctx context.Context, bundleID string) error {
	if err := c.obj.CallWithContext(ctx, ControlInterface+".Simulate", 0, bundleID).Err; err != nil {
		return fmt.Errorf("Simulate: %w", err)
	}
	return nil
}

// Reload asks the daemon to re-read its configuration.
func (c *ControlClient) Reload(ctx context.Context) error {
	if err := c.obj.CallWithContext(ctx, ControlInterface+".Reload", 0).Err; err != nil {
		return fmt.Errorf("Reload: %w", err)
	}
	return nil
}

// Close closes the bus connection.
func (c *ControlClient) Close() error {
	return c.conn.Close()
}
