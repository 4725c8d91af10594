package store

import (
	"log/slog"
	"sort"

	"github.com/jmylchreest/launchchime/internal/model"
)

// NormalizationRule rewrites a single decoded record into its canonical form.
// Apply reports whether it changed the record. Every rule must be idempotent.
type NormalizationRule struct {
	Version int
	Name    string
	Apply   func(c *model.AppConfig) bool
}

// normalizationRules is the ordered list applied after every decode.
var normalizationRules = []NormalizationRule{
	{
		Version: 1,
		Name:    "canonical-default-sound-names",
		Apply:   canonicalDefaultSoundName,
	},
}

// NormalizationRules returns the rules sorted by version.
func NormalizationRules() []NormalizationRule {
	rules := make([]NormalizationRule, len(normalizationRules))
	copy(rules, normalizationRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Version < rules[j].Version
	})
	return rules
}

// legacySoundNames maps the bundle identifiers of the shipped defaults to the
// alternate sound name older releases stored and the canonical catalog name.
var legacySoundNames = map[string]struct{ legacy, canonical string }{
	"com.cursor.Cursor":    {"depth.wav", "depth"},
	"com.example.Windsurf": {"wooly.wav", "wooly"},
	"com.microsoft.VSCode": {"sparse.wav", "sparse"},
}

// canonicalDefaultSoundName rewrites "<name>.wav" to "<name>" for the three
// shipped default applications only.
func canonicalDefaultSoundName(c *model.AppConfig) bool {
	names, ok := legacySoundNames[c.BundleIdentifier]
	if !ok || c.SoundFileName != names.legacy {
		return false
	}
	c.SoundFileName = names.canonical
	return true
}

// Normalize applies every rule to every record in place and returns the
// number of records that changed.
func Normalize(configs []model.AppConfig) int {
	changed := 0
	rules := NormalizationRules()
	for i := range configs {
		touched := false
		for _, rule := range rules {
			if rule.Apply(&configs[i]) {
				touched = true
			}
		}
		if touched {
			changed++
		}
	}
	return changed
}

// sanitize enforces the set-level invariants on a decoded collection: every
// record has an ID and bundle identifiers are unique (first one wins).
// It returns the cleaned slice and whether anything was dropped or filled in.
func sanitize(configs []model.AppConfig, logger *slog.Logger) ([]model.AppConfig, bool) {
	result := make([]model.AppConfig, 0, len(configs))
	seen := make(map[string]bool, len(configs))
	changed := false

	for _, c := range configs {
		if c.BundleIdentifier == "" {
			logger.Warn("dropping app config without bundle identifier", "app", c.AppName)
			changed = true
			continue
		}
		if seen[c.BundleIdentifier] {
			logger.Warn("dropping duplicate app config", "bundle_id", c.BundleIdentifier, "id", c.ID)
			changed = true
			continue
		}
		if c.ID == "" {
			id, err := model.NewID()
			if err != nil {
				logger.Warn("failed to assign id to app config", "bundle_id", c.BundleIdentifier, "error", err)
				changed = true
				continue
			}
			c.ID = id
			changed = true
		}
		seen[c.BundleIdentifier] = true
		result = append(result, c)
	}

	return result, changed
}
