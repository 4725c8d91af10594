package core

import (
	"strings"

	"github.com/jmylchreest/launchchime/internal/model"
)

// FilterOptions specifies criteria for filtering app configs.
type FilterOptions struct {
	Active *bool  // Filter by activation (nil=any)
	Sound  string // Exact match on sound name
	Search string // Case-insensitive substring of name or bundle id
	Limit  int    // Maximum results (0=unlimited)
}

// Filter filters configs based on the provided options.
func Filter(configs []model.AppConfig, opts FilterOptions) []model.AppConfig {
	term := strings.ToLower(strings.TrimSpace(opts.Search))
	result := make([]model.AppConfig, 0, len(configs))

	for _, c := range configs {
		if opts.Active != nil && c.IsActivated != *opts.Active {
			continue
		}

		if opts.Sound != "" && c.SoundFileName != opts.Sound {
			continue
		}

		if term != "" &&
			!strings.Contains(strings.ToLower(c.AppName), term) &&
			!strings.Contains(strings.ToLower(c.BundleIdentifier), term) {
			continue
		}

		result = append(result, c)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result
}

// SoundUsage counts how many configs reference each sound.
func SoundUsage(configs []model.AppConfig) map[string]int {
	usage := make(map[string]int)
	for _, c := range configs {
		if c.HasSound() {
			usage[c.SoundFileName]++
		}
	}
	return usage
}
