package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
)

// IDsFormatter outputs bare identifiers, one per line.
// Useful for piping to other commands (e.g., launchchime app remove).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Apps writes config IDs.
func (f *IDsFormatter) Apps(w io.Writer, configs []model.AppConfig) error {
	for _, c := range configs {
		if _, err := fmt.Fprintln(w, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Sounds writes sound names.
func (f *IDsFormatter) Sounds(w io.Writer, assets []library.Asset) error {
	for _, a := range assets {
		if _, err := fmt.Fprintln(w, a.Name); err != nil {
			return err
		}
	}
	return nil
}

// Presets writes preset names.
func (f *IDsFormatter) Presets(w io.Writer, names []string) error {
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}
