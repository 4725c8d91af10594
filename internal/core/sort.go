package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/launchchime/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByNone   SortField = ""
	SortByName   SortField = "name"
	SortByBundle SortField = "bundle"
	SortBySound  SortField = "sound"
	SortByVolume SortField = "volume"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// Sort sorts configs in place. SortByNone keeps the stored order, which is
// the order list indices refer to.
func Sort(configs []model.AppConfig, opts SortOptions) {
	if len(configs) == 0 || opts.Field == SortByNone {
		return
	}

	slices.SortStableFunc(configs, func(a, b model.AppConfig) int {
		var c int
		switch opts.Field {
		case SortByBundle:
			c = strings.Compare(strings.ToLower(a.BundleIdentifier), strings.ToLower(b.BundleIdentifier))
		case SortBySound:
			c = strings.Compare(a.SoundFileName, b.SoundFileName)
		case SortByVolume:
			c = cmp.Compare(a.Volume, b.Volume)
		default:
			c = strings.Compare(strings.ToLower(a.AppName), strings.ToLower(b.AppName))
		}

		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortByNone, nil
	case "name", "app", "n":
		return SortByName, nil
	case "bundle", "bundle_id", "b":
		return SortByBundle, nil
	case "sound", "s":
		return SortBySound, nil
	case "volume", "v":
		return SortByVolume, nil
	default:
		return SortByNone, fmt.Errorf("unknown sort field %q", s)
	}
}
