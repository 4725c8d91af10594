package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
)

// JSONFormatter formats collections as indented JSON arrays.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Apps writes configs as a JSON array in the persisted field layout.
func (f *JSONFormatter) Apps(w io.Writer, configs []model.AppConfig) error {
	if configs == nil {
		configs = []model.AppConfig{}
	}
	return encode(w, configs)
}

// Sounds writes assets as a JSON array.
func (f *JSONFormatter) Sounds(w io.Writer, assets []library.Asset) error {
	if assets == nil {
		assets = []library.Asset{}
	}
	return encode(w, assets)
}

// Presets writes preset names as a JSON array.
func (f *JSONFormatter) Presets(w io.Writer, names []string) error {
	if names == nil {
		names = []string{}
	}
	return encode(w, names)
}

// FormatSingle writes a single app configuration as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, c *model.AppConfig) error {
	return encode(w, c)
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
