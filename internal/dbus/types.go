package dbus

import (
	"github.com/godbus/dbus/v5"
)

// Status is the daemon state reported by GetStatus. On the bus it travels
// as an a{sv} dictionary so fields can be added without breaking clients.
type Status struct {
	State   string `json:"state"` // idle, active, stopped
	Enabled bool   `json:"enabled"`
	Apps    int    `json:"apps"`
	Feed    string `json:"feed"`
	Version string `json:"version"`
}

// Variants converts the status to its D-Bus dictionary form.
func (s Status) Variants() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"state":   dbus.MakeVariant(s.State),
		"enabled": dbus.MakeVariant(s.Enabled),
		"apps":    dbus.MakeVariant(int32(s.Apps)),
		"feed":    dbus.MakeVariant(s.Feed),
		"version": dbus.MakeVariant(s.Version),
	}
}

// ParseStatus reads a status dictionary. Missing or mistyped entries keep
// their zero value.
func ParseStatus(m map[string]dbus.Variant) Status {
	var s Status
	if v, ok := m["state"]; ok {
		s.State, _ = v.Value().(string)
	}
	if v, ok := m["enabled"]; ok {
		s.Enabled, _ = v.Value().(bool)
	}
	if v, ok := m["apps"]; ok {
		switch n := v.Value().(type) {
		case int32:
			s.Apps = int(n)
		case uint32:
			s.Apps = int(n)
		case int64:
			s.Apps = int(n)
		}
	}
	if v, ok := m["feed"]; ok {
		s.Feed, _ = v.Value().(string)
	}
	if v, ok := m["version"]; ok {
		s.Version, _ = v.Value().(string)
	}
	return s
}
