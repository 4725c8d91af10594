// Package input provides adapters that turn external sources into app
// configurations for import.
package input

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/launchchime/internal/model"
)

// InputAdapter produces app configurations from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "json", "desktop").
	Name() string

	// Import reads configurations from the source. Returned configs have
	// no ID; the store assigns one on insert.
	Import(ctx context.Context) ([]model.AppConfig, error)
}

// NewAdapter creates an InputAdapter for source. For "json" the refs name
// files to read ("-" or none reads r). For "desktop" they are desktop ids or
// desktop file paths.
func NewAdapter(source string, refs []string, r io.Reader) (InputAdapter, error) {
	switch source {
	case "json":
		return NewJSONAdapter(refs, r), nil
	case "desktop":
		return NewDesktopAdapter(refs), nil
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: "unknown adapter",
		}
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	msg := e.Source + ": " + e.Message
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// sanitizeString replaces control characters with spaces and trims.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 || r == 127 {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// openRef opens a named file, or returns stdin for "-".
func openRef(ref string, stdin io.Reader) (io.ReadCloser, error) {
	if ref == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(ref)
}
