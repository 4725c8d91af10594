package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for file extensions beep cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// supportedExtensions lists the formats Decode understands.
var supportedExtensions = []string{".wav", ".mp3", ".ogg"}

// SupportedExtensions returns the recognized audio file extensions.
func SupportedExtensions() []string {
	exts := make([]string, len(supportedExtensions))
	copy(exts, supportedExtensions)
	return exts
}

// IsSupported reports whether ext (with leading dot, any case) can be decoded.
func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decode decodes rc according to ext. The returned streamer owns rc.
func Decode(rc io.ReadCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)

	switch strings.ToLower(ext) {
	case ".wav":
		streamer, format, err = wav.Decode(rc)
	case ".ogg":
		streamer, format, err = vorbis.Decode(rc)
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	default:
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode sound: %w", err)
	}
	return streamer, format, nil
}

// ProbeDuration returns the playing time of the audio file at path.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open sound file: %w", err)
	}

	streamer, format, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = streamer.Close()
		_ = f.Close()
	}()

	n := streamer.Len()
	if n <= 0 || format.SampleRate <= 0 {
		return 0, fmt.Errorf("cannot determine length of %s", filepath.Base(path))
	}
	return format.SampleRate.D(n), nil
}

// load decodes a whole source into memory.
func load(src Source) (*beep.Buffer, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open sound: %w", err)
	}

	streamer, format, err := Decode(rc, src.Ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = streamer.Close()
		_ = rc.Close()
	}()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sound: %w", err)
	}
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("sound %s is empty", src.Name)
	}
	return buffer, nil
}
