package input

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/jmylchreest/launchchime/internal/model"
)

// maxJSONSize bounds a single JSON input.
const maxJSONSize = 10 * 1024 * 1024

// JSONAdapter reads app configurations in the format written by
// 'launchchime app list --format json': an array of configs or a single
// config object.
type JSONAdapter struct {
	refs  []string
	stdin io.Reader
}

// NewJSONAdapter creates an adapter over the named files. No refs reads stdin.
func NewJSONAdapter(refs []string, stdin io.Reader) *JSONAdapter {
	if len(refs) == 0 {
		refs = []string{"-"}
	}
	return &JSONAdapter{refs: refs, stdin: stdin}
}

// Name returns the adapter identifier.
func (a *JSONAdapter) Name() string {
	return "json"
}

// Import reads every ref in order.
func (a *JSONAdapter) Import(ctx context.Context) ([]model.AppConfig, error) {
	var all []model.AppConfig
	for _, ref := range a.refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		configs, err := a.importRef(ref)
		if err != nil {
			return nil, err
		}
		all = append(all, configs...)
	}
	return all, nil
}

func (a *JSONAdapter) importRef(ref string) ([]model.AppConfig, error) {
	f, err := openRef(ref, a.stdin)
	if err != nil {
		return nil, &AdapterError{Source: "json", Message: "failed to open " + ref, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxJSONSize+1))
	if err != nil {
		return nil, &AdapterError{Source: "json", Message: "failed to read " + ref, Err: err}
	}
	if len(data) > maxJSONSize {
		return nil, &AdapterError{Source: "json", Message: ref + " is too large"}
	}

	configs, err := ParseJSON(data)
	if err != nil {
		return nil, &AdapterError{Source: "json", Message: "failed to parse " + ref, Err: err}
	}
	return configs, nil
}

// ParseJSON decodes an array of configs or a single config. Empty input
// yields no configs. IDs are cleared and text fields sanitized.
func ParseJSON(data []byte) ([]model.AppConfig, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var configs []model.AppConfig
	if data[0] == '[' {
		if err := json.Unmarshal(data, &configs); err != nil {
			return nil, err
		}
	} else {
		var c model.AppConfig
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		configs = []model.AppConfig{c}
	}

	for i := range configs {
		c := &configs[i]
		c.ID = ""
		c.AppName = sanitizeString(c.AppName)
		c.BundleIdentifier = sanitizeString(c.BundleIdentifier)
		c.AppPath = sanitizeString(c.AppPath)
		c.SoundFileName = sanitizeString(c.SoundFileName)
	}
	return configs, nil
}
