package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/launchchime/internal/launch"
)

const (
	// SystemdBusName is the systemd manager bus name.
	SystemdBusName = "org.freedesktop.systemd1"
	// SystemdPath is the systemd manager object path.
	SystemdPath = dbus.ObjectPath("/org/freedesktop/systemd1")
	// ManagerInterface is the systemd manager interface.
	ManagerInterface = "org.freedesktop.systemd1.Manager"
)

// UnitMonitor is a launch.Feed that watches the user's systemd manager for
// new application units. Desktop environments place every launched app in
// its own transient unit named after the application id.
type UnitMonitor struct {
	logger  *slog.Logger
	connect func() (*dbus.Conn, error)
}

// NewUnitMonitor creates a monitor on the session bus.
func NewUnitMonitor(logger *slog.Logger) *UnitMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitMonitor{
		logger: logger,
		// A private connection so Unsubscribe can close it.
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Subscribe connects to the session bus and delivers an event for each new
// application unit.
func (m *UnitMonitor) Subscribe(ctx context.Context, h launch.Handler) (launch.Subscription, error) {
	conn, err := m.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	// systemd only emits manager signals to subscribed clients.
	obj := conn.Object(SystemdBusName, SystemdPath)
	if err := obj.CallWithContext(ctx, ManagerInterface+".Subscribe", 0).Err; err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to systemd manager: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(SystemdPath),
		dbus.WithMatchInterface(ManagerInterface),
		dbus.WithMatchMember("UnitNew"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	ch := make(chan *dbus.Signal, 64)
	conn.Signal(ch)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-ch:
				if !ok {
					return
				}
				m.handleSignal(sig, h)
			}
		}
	}()

	m.logger.Info("started systemd unit monitor")

	return launch.SubscriptionFunc(func() error {
		cancel()
		conn.RemoveSignal(ch)
		err := conn.Close()
		wg.Wait()
		m.logger.Debug("stopped systemd unit monitor")
		return err
	}), nil
}

// handleSignal turns a UnitNew signal into a launch event.
func (m *UnitMonitor) handleSignal(sig *dbus.Signal, h launch.Handler) {
	if sig == nil || sig.Name != ManagerInterface+".UnitNew" {
		return
	}

	// UnitNew(s id, o unit)
	if len(sig.Body) < 1 {
		m.logger.Warn("malformed UnitNew signal", "body_len", len(sig.Body))
		return
	}
	unit, ok := sig.Body[0].(string)
	if !ok {
		m.logger.Warn("invalid unit id type")
		return
	}

	appID, launcher, ok := ParseAppUnit(unit)
	if !ok {
		return
	}

	m.logger.Debug("application unit started", "unit", unit, "app_id", appID, "launcher", launcher)
	h(launch.Event{
		BundleID: appID,
		Name:     appID,
		Time:     time.Now(),
	})
}

// ParseAppUnit extracts the application id from an app unit name:
//
//	app-[<launcher>-]<ApplicationID>-<RANDOM>.scope
//	app-[<launcher>-]<ApplicationID>[@<RANDOM>].service
//
// Dashes inside the id are escaped as \x2d by systemd.
func ParseAppUnit(unit string) (appID, launcher string, ok bool) {
	rest, found := strings.CutPrefix(unit, "app-")
	if !found {
		return "", "", false
	}

	switch {
	case strings.HasSuffix(rest, ".scope"):
		rest = strings.TrimSuffix(rest, ".scope")
		i := strings.LastIndex(rest, "-")
		if i <= 0 {
			return "", "", false
		}
		rest = rest[:i]
	case strings.HasSuffix(rest, ".service"):
		rest = strings.TrimSuffix(rest, ".service")
		if before, _, templated := strings.Cut(rest, "@"); templated {
			rest = before
		}
	default:
		return "", "", false
	}

	parts := strings.Split(rest, "-")
	id := parts[len(parts)-1]
	if len(parts) > 1 {
		launcher = unescapeUnit(parts[len(parts)-2])
	}

	appID = unescapeUnit(id)
	if appID == "" {
		return "", "", false
	}
	return appID, launcher, true
}

// unescapeUnit reverses systemd's \xNN unit name escaping.
func unescapeUnit(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
