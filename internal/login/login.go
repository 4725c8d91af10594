// Package login manages the XDG autostart entry that launches the daemon
// when the user logs in.
package login

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EntryName is the autostart desktop file name.
const EntryName = "launchchimed.desktop"

// Autostart controls one autostart entry.
type Autostart struct {
	path string
	exec string
}

// New returns an Autostart for the default location that runs exec.
// An empty exec uses "launchchimed" from PATH.
func New(exec string) *Autostart {
	return NewAt(DefaultPath(), exec)
}

// NewAt returns an Autostart writing to path.
func NewAt(path, exec string) *Autostart {
	if exec == "" {
		exec = "launchchimed"
	}
	return &Autostart{path: path, exec: exec}
}

// DefaultPath returns $XDG_CONFIG_HOME/autostart/launchchimed.desktop.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", EntryName)
}

// Path returns the entry location.
func (a *Autostart) Path() string {
	return a.path
}

// Enabled reports whether the entry exists and is not hidden.
func (a *Autostart) Enabled() (bool, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	for line := range strings.Lines(string(data)) {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		v := strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Hidden":
			if v == "true" {
				return false, nil
			}
		case "X-GNOME-Autostart-enabled":
			if v == "false" {
				return false, nil
			}
		}
	}
	return true, nil
}

// SetEnabled writes or removes the entry. On failure the previous state
// is left in place.
func (a *Autostart) SetEnabled(enabled bool) error {
	if !enabled {
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}

	tmpPath := a.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(a.entry()), 0644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install autostart entry: %w", err)
	}
	return nil
}

func (a *Autostart) entry() string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=launchchime\n")
	b.WriteString("Comment=Play a sound when applications launch\n")
	fmt.Fprintf(&b, "Exec=%s\n", a.exec)
	b.WriteString("Terminal=false\n")
	b.WriteString("NoDisplay=true\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}
