// Package output provides output formatters for app configurations,
// sounds and presets.
package output

import (
	"io"

	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
)

// Formatter writes collections to a writer.
type Formatter interface {
	// Apps writes app configurations.
	Apps(w io.Writer, configs []model.AppConfig) error
	// Sounds writes catalog entries.
	Sounds(w io.Writer, assets []library.Asset) error
	// Presets writes preset names.
	Presets(w io.Writer, names []string) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatIDs   FormatType = "ids"
	FormatDmenu FormatType = "dmenu"
)

// ValidFormats returns all valid format values.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatIDs, FormatDmenu}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for dmenu format
	ShowIndex bool   // Show 0-based index prefix (as used by app remove --index)
	Separator string // Field separator for dmenu format
	NoColor   bool   // Disable styling in plain format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		Separator: " | ",
	}
}
