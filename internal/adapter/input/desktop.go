package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/launchchime/internal/model"
)

// DesktopEntry is the subset of a freedesktop desktop entry used to describe
// an application.
type DesktopEntry struct {
	ID      string // desktop id, file name without .desktop
	Path    string
	Name    string
	Exec    string
	Flatpak string // X-Flatpak application id
	Type    string
}

// BundleID returns the identity launches of this entry are reported under.
func (e DesktopEntry) BundleID() string {
	if e.Flatpak != "" {
		return e.Flatpak
	}
	return e.ID
}

// AppConfig converts the entry to an app configuration without a sound,
// like an app picked in a file chooser.
func (e DesktopEntry) AppConfig() model.AppConfig {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	return model.AppConfig{
		AppName:          name,
		BundleIdentifier: e.BundleID(),
		AppPath:          e.Path,
		SoundFileName:    "",
		IsActivated:      true,
		Volume:           model.DefaultVolume,
	}
}

// ApplicationDirs returns the XDG application directories in lookup order.
func ApplicationDirs() []string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}

	var dirs []string
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
		dirs = append(dirs, filepath.Join(dataHome, "flatpak", "exports", "share", "applications"))
	}
	dirs = append(dirs, "/var/lib/flatpak/exports/share/applications")
	for _, d := range filepath.SplitList(dataDirs) {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// DesktopAdapter turns desktop entries into app configurations.
type DesktopAdapter struct {
	refs []string
	dirs []string
}

// NewDesktopAdapter creates an adapter for refs, each a desktop id
// (with or without .desktop) or a path to a desktop file.
func NewDesktopAdapter(refs []string) *DesktopAdapter {
	return &DesktopAdapter{refs: refs, dirs: ApplicationDirs()}
}

// SetSearchDirs overrides the directories desktop ids are looked up in.
func (a *DesktopAdapter) SetSearchDirs(dirs []string) {
	a.dirs = dirs
}

// Name returns the adapter identifier.
func (a *DesktopAdapter) Name() string {
	return "desktop"
}

// Import resolves and parses every ref. Entries that are not applications
// are rejected.
func (a *DesktopAdapter) Import(ctx context.Context) ([]model.AppConfig, error) {
	if len(a.refs) == 0 {
		return nil, &AdapterError{Source: "desktop", Message: "no desktop entries given"}
	}

	configs := make([]model.AppConfig, 0, len(a.refs))
	for _, ref := range a.refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := a.Resolve(ref)
		if err != nil {
			return nil, err
		}
		entry, err := ParseDesktopFile(path)
		if err != nil {
			return nil, &AdapterError{Source: "desktop", Message: "failed to read " + path, Err: err}
		}
		if entry.Type != "" && entry.Type != "Application" {
			return nil, &AdapterError{Source: "desktop", Message: fmt.Sprintf("%s is a %s entry, not an application", path, entry.Type)}
		}
		configs = append(configs, entry.AppConfig())
	}
	return configs, nil
}

// Resolve finds the desktop file for ref. Paths are used as given; ids are
// searched in the adapter's directories, first match wins.
func (a *DesktopAdapter) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &AdapterError{Source: "desktop", Message: "empty desktop id"}
	}

	if strings.ContainsRune(ref, filepath.Separator) {
		if _, err := os.Stat(ref); err != nil {
			return "", &AdapterError{Source: "desktop", Message: "desktop file not found", Err: err}
		}
		return ref, nil
	}

	name := ref
	if !strings.HasSuffix(name, ".desktop") {
		name += ".desktop"
	}
	for _, dir := range a.dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &AdapterError{Source: "desktop", Message: "no desktop entry named " + name}
}

// ParseDesktopFile reads the [Desktop Entry] group of a desktop file.
// Localized keys and other groups are ignored.
func ParseDesktopFile(path string) (DesktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return DesktopEntry{}, err
	}
	defer f.Close()

	entry := DesktopEntry{
		ID:   strings.TrimSuffix(filepath.Base(path), ".desktop"),
		Path: path,
	}

	inMain := false
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inMain = line == "[Desktop Entry]"
			found = found || inMain
			continue
		}
		if !inMain {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = sanitizeString(value)
		switch strings.TrimSpace(key) {
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "X-Flatpak":
			entry.Flatpak = value
		case "Type":
			entry.Type = value
		}
	}
	if err := scanner.Err(); err != nil {
		return DesktopEntry{}, err
	}
	if !found {
		return DesktopEntry{}, errors.New("missing [Desktop Entry] group")
	}
	return entry, nil
}
