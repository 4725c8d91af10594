package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/launchchime/internal/library"
	"github.com/jmylchreest/launchchime/internal/model"
	"github.com/jmylchreest/launchchime/internal/store"
)

// PlainFormatter formats collections as aligned human-readable tables.
type PlainFormatter struct {
	opts   FormatterOptions
	header lipgloss.Style
	muted  lipgloss.Style
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{
		opts:   opts,
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	if opts.NoColor {
		f.header = lipgloss.NewStyle()
		f.muted = lipgloss.NewStyle()
	}
	return f
}

// Apps writes one row per config.
func (f *PlainFormatter) Apps(w io.Writer, configs []model.AppConfig) error {
	if len(configs) == 0 {
		_, err := fmt.Fprintln(w, f.muted.Render("no apps configured"))
		return err
	}

	rows := make([][]string, 0, len(configs))
	for i, c := range configs {
		state := "on"
		if !c.IsActivated {
			state = "off"
		}
		row := []string{c.AppName, c.BundleIdentifier, c.SoundFileName, fmt.Sprintf("%d%%", int(c.Volume*100+0.5)), state}
		if f.opts.ShowIndex {
			row = append([]string{fmt.Sprintf("%d", i)}, row...)
		}
		rows = append(rows, row)
	}

	headers := []string{"APP", "BUNDLE ID", "SOUND", "VOLUME", "ACTIVE"}
	if f.opts.ShowIndex {
		headers = append([]string{"#"}, headers...)
	}
	return f.table(w, headers, rows)
}

// Sounds writes one row per catalog entry.
func (f *PlainFormatter) Sounds(w io.Writer, assets []library.Asset) error {
	if len(assets) == 0 {
		_, err := fmt.Fprintln(w, f.muted.Render("no sounds available"))
		return err
	}

	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		kind := "custom"
		if a.Builtin {
			kind = "built-in"
		}
		rows = append(rows, []string{a.Name, kind, humanize.Bytes(uint64(max(a.Size, 0)))})
	}
	return f.table(w, []string{"NAME", "KIND", "SIZE"}, rows)
}

// Presets writes one preset name per line, marking the reserved default.
func (f *PlainFormatter) Presets(w io.Writer, names []string) error {
	for _, n := range names {
		line := n
		if n == store.DefaultPresetName {
			line += " " + f.muted.Render("(built-in)")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// table writes a styled header followed by space-padded columns.
func (f *PlainFormatter) table(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(f.header.Render(pad(h, widths[i], i == len(headers)-1)))
	}
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			sb.WriteString(pad(cell, widths[i], i == len(row)-1))
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s)+2)
}
