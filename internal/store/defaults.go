package store

import "github.com/jmylchreest/launchchime/internal/model"

// Persistence keys.
const (
	// ConfigKey holds the live configuration set. The suffix versions the format.
	ConfigKey = "appConfigs_v1"

	// PresetKeyPrefix namespaces preset snapshots.
	PresetKeyPrefix = "appConfigPreset_"

	// DefaultPresetName is reserved for the built-in default set.
	DefaultPresetName = "Default"
)

// defaultEntry describes one shipped default mapping.
type defaultEntry struct {
	appName  string
	bundleID string
	appPath  string
	sound    string
}

var defaultEntries = []defaultEntry{
	{"Cursor", "com.cursor.Cursor", "/Applications/Cursor.app", "depth"},
	{"Windsurf", "com.example.Windsurf", "/Applications/Windsurf.app", "wooly"},
	{"Visual Studio Code", "com.microsoft.VSCode", "/Applications/Visual Studio Code.app", "sparse"},
}

// DefaultConfigs returns a fresh copy of the built-in default set.
// Each call assigns new IDs.
func DefaultConfigs() ([]model.AppConfig, error) {
	configs := make([]model.AppConfig, 0, len(defaultEntries))
	for _, e := range defaultEntries {
		c, err := model.NewAppConfig(e.appName, e.bundleID, e.appPath, e.sound)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, nil
}

// presetKey returns the namespaced key for a preset name.
func presetKey(name string) string {
	return PresetKeyPrefix + name
}
