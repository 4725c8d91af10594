package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/launchchime/internal/audio"
)

// ImportResult is delivered once by ImportAsync.
type ImportResult struct {
	Asset Asset
	Err   error
}

// Import validates src and copies it into the custom directory under its
// own file name. Existing sounds are never overwritten.
func (l *Library) Import(src string) (Asset, error) {
	if l.isClosed() {
		return Asset{}, ErrLibraryClosed
	}
	return l.importSound(l.ctx, src)
}

// ImportAsync runs Import in the background. The channel yields exactly one
// result, or is closed without a value if the library is closed first; an
// abandoned import leaves nothing behind.
func (l *Library) ImportAsync(src string) <-chan ImportResult {
	ch := make(chan ImportResult, 1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		ch <- ImportResult{Err: ErrLibraryClosed}
		close(ch)
		return ch
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer close(ch)

		asset, err := l.importSound(l.ctx, src)
		if errors.Is(err, context.Canceled) {
			l.logger.Debug("discarded pending import", "src", src)
			return
		}
		ch <- ImportResult{Asset: asset, Err: err}
	}()

	return ch
}

func (l *Library) importSound(ctx context.Context, src string) (Asset, error) {
	name := filepath.Base(src)
	ext := strings.ToLower(filepath.Ext(name))
	if !audio.IsSupported(ext) || strings.HasPrefix(name, ".") {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, name)
	}

	if err := l.ensureDir(); err != nil {
		return Asset{}, err
	}
	dest := filepath.Join(l.dir, name)

	release, err := l.claim(name, dest)
	if err != nil {
		return Asset{}, err
	}
	defer release()

	d, err := audio.ProbeDuration(src)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrDurationProbeFailure, err)
	}
	if d > MaxDuration {
		l.logger.Info("rejected sound import", "name", name, "duration", d)
		return Asset{}, &SoundTooLongError{Duration: d, Limit: MaxDuration}
	}

	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	size, err := l.publish(ctx, src, dest)
	if err != nil {
		return Asset{}, err
	}

	l.logger.Info("imported sound", "name", name, "duration", d)
	l.Refresh()
	// An earlier file of this name removed behind our back may still be cached.
	l.notifyRemoved(name)

	return Asset{Name: name, Path: dest, Size: size}, nil
}

// claim reserves name for this import. Concurrent imports of the same name
// in this process lose here; other processes lose at publish.
func (l *Library) claim(name, dest string) (func(), error) {
	l.importMu.Lock()
	defer l.importMu.Unlock()

	if l.inflight[name] {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSoundName, name)
	}
	if _, err := os.Lstat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSoundName, name)
	}

	l.inflight[name] = true
	return func() {
		l.importMu.Lock()
		delete(l.inflight, name)
		l.importMu.Unlock()
	}, nil
}

// publish copies src to a hidden temp file next to dest and links it into
// place. The link fails if dest exists, so exactly one writer wins.
func (l *Library) publish(ctx context.Context, src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(l.dir, ".import-*"+filepath.Ext(dest))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, in)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.Link(tmpPath, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateSoundName, filepath.Base(dest))
		}
		// Filesystems without hard links: create exclusively instead.
		if err := copyExclusive(tmpPath, dest); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// copyExclusive copies src to a new file at dest, failing if dest exists.
func copyExclusive(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDuplicateSoundName, filepath.Base(dest))
		}
		return fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrCopyFailure, err)
	}
	return nil
}
