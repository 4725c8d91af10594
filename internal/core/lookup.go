// Package core provides the application services and the filtering,
// sorting, and lookup logic shared by the CLI and the daemon.
package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/launchchime/internal/model"
)

// LookupByID finds a config by its ID.
// Returns nil if not found.
func LookupByID(configs []model.AppConfig, id string) *model.AppConfig {
	for i := range configs {
		if configs[i].ID == id {
			return &configs[i]
		}
	}
	return nil
}

// LookupByIndex finds a config by its position in the list (0-based, as
// shown by app list). Returns nil if index is out of bounds.
func LookupByIndex(configs []model.AppConfig, index int) *model.AppConfig {
	if index < 0 || index >= len(configs) {
		return nil
	}
	return &configs[index]
}

// LookupByBundle finds a config by bundle identifier.
func LookupByBundle(configs []model.AppConfig, bundleID string) *model.AppConfig {
	bundleID = strings.TrimSpace(bundleID)
	for i := range configs {
		if configs[i].BundleIdentifier == bundleID {
			return &configs[i]
		}
	}
	return nil
}

// Resolve finds a config by ID, then bundle identifier, then list index.
func Resolve(configs []model.AppConfig, ref string) *model.AppConfig {
	if c := LookupByID(configs, ref); c != nil {
		return c
	}
	if c := LookupByBundle(configs, ref); c != nil {
		return c
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		return LookupByIndex(configs, idx)
	}
	return nil
}

// IndexOf returns the list position of the config with id, or -1.
func IndexOf(configs []model.AppConfig, id string) int {
	for i := range configs {
		if configs[i].ID == id {
			return i
		}
	}
	return -1
}
