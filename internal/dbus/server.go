package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// ControlInterface is the daemon control interface name.
	ControlInterface = "io.github.jmylchreest.launchchimed"
	// ControlPath is the daemon control object path.
	ControlPath = dbus.ObjectPath("/io/github/jmylchreest/launchchimed")
	// ControlBusName is the bus name the daemon claims.
	ControlBusName = "io.github.jmylchreest.launchchimed"
)

// ErrAlreadyRunning is returned by Start when another daemon owns the bus name.
var ErrAlreadyRunning = errors.New("launchchimed is already running")

// Controller is the daemon surface exposed on the bus.
type Controller interface {
	Status() Status
	SetEnabled(enabled bool)
	Simulate(bundleID string) error
	Reload() error
}

// ControlServer exports a Controller on the session bus.
type ControlServer struct {
	conn   *dbus.Conn
	logger *slog.Logger
	ctrl   Controller

	mu      sync.Mutex
	running bool
}

// NewControlServer creates a server for ctrl.
func NewControlServer(ctrl Controller, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{ctrl: ctrl, logger: logger}
}

// Start connects to the session bus, exports the control object and claims
// the bus name.
func (s *ControlServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	// Private connection so Stop can close it.
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	obj := &controlObject{server: s}
	if err := conn.Export(obj, ControlPath, ControlInterface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(ControlPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return ErrAlreadyRunning
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control server started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the bus name and closes the connection.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(ControlBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	err := s.conn.Close()
	s.conn = nil

	s.logger.Info("D-Bus control server stopped")
	return err
}

// controlObject holds the exported methods. Kept apart from ControlServer
// so Start and Stop are not callable over the bus.
type controlObject struct {
	server *ControlServer
}

// GetStatus D-Bus method: GetStatus() -> a{sv}
func (o *controlObject) GetStatus() (map[string]dbus.Variant, *dbus.Error) {
	o.server.logger.Debug("GetStatus called")
	return o.server.ctrl.Status().Variants(), nil
}

// SetEnabled D-Bus method: SetEnabled(b)
func (o *controlObject) SetEnabled(enabled bool) *dbus.Error {
	o.server.logger.Debug("SetEnabled called", "enabled", enabled)
	o.server.ctrl.SetEnabled(enabled)
	if err := o.server.EmitEnabledChanged(enabled); err != nil {
		o.server.logger.Debug("EnabledChanged not emitted", "error", err)
	}
	return nil
}

// Simulate D-Bus method: Simulate(s)
func (o *controlObject) Simulate(bundleID string) *dbus.Error {
	o.server.logger.Debug("Simulate called", "bundle_id", bundleID)
	if err := o.server.ctrl.Simulate(bundleID); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Reload D-Bus method: Reload()
func (o *controlObject) Reload() *dbus.Error {
	o.server.logger.Debug("Reload called")
	if err := o.server.ctrl.Reload(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "status", Type: "a{sv}", Direction: "out"},
			},
		},
		{
			Name: "SetEnabled",
			Args: []introspect.Arg{
				{Name: "enabled", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "Simulate",
			Args: []introspect.Arg{
				{Name: "bundle_id", Type: "s", Direction: "in"},
			},
		},
		{Name: "Reload"},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "EnabledChanged",
			Args: []introspect.Arg{
				{Name: "enabled", Type: "b"},
			},
		},
	}
}
