package dbus

import (
	"fmt"
)

// EmitEnabledChanged emits the EnabledChanged signal.
func (s *ControlServer) EmitEnabledChanged(enabled bool) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(ControlPath, ControlInterface+".EnabledChanged", enabled); err != nil {
		return fmt.Errorf("failed to emit EnabledChanged signal: %w", err)
	}

	s.logger.Debug("emitted EnabledChanged signal", "enabled", enabled)
	return nil
}
