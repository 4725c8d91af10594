package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
)

// DmenuFormatter formats one line per entry for dmenu/rofi/fuzzel pickers.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Apps writes one line per app configuration.
func (f *DmenuFormatter) Apps(w io.Writer, configs []model.AppConfig) error {
	for i := range configs {
		if _, err := fmt.Fprintln(w, f.appLine(i, &configs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Sounds writes one sound name per line.
func (f *DmenuFormatter) Sounds(w io.Writer, assets []library.Asset) error {
	for _, a := range assets {
		if _, err := fmt.Fprintln(w, a.Name); err != nil {
			return err
		}
	}
	return nil
}

// Presets writes one preset name per line.
func (f *DmenuFormatter) Presets(w io.Writer, names []string) error {
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) appLine(index int, c *model.AppConfig) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, templateData{Index: index, AppConfig: c}); err == nil {
			return buf.String()
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	name := c.AppName
	if !c.IsActivated {
		name += " (off)"
	}
	parts = append(parts, name, c.BundleIdentifier, c.SoundFileName)
	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index int
	*model.AppConfig
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%d%%", int(v*100+0.5))
		},
	}
}
