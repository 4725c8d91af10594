package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSchemaVersion is the current version of the file store document.
const FileSchemaVersion = 1

// ErrCorrupt is returned by reads when the store file cannot be parsed.
// The next write moves the file aside and starts a fresh document.
var ErrCorrupt = errors.New("store file is corrupt")

// fileDocument is the JSON structure of the store file.
type fileDocument struct {
	SchemaVersion int                        `json:"schema_version"`
	Entries       map[string]json.RawMessage `json:"entries"`
}

// FileStore keeps every key in a single JSON document.
// Every call re-reads the file so writes by other processes are observed;
// writes go through a temp file and rename.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates a FileStore at path, creating parent directories.
// The file itself is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the value for key.
func (f *FileStore) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc.Entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key. The value must be valid JSON.
func (f *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	doc, err := f.readForWrite()
	if err != nil {
		return err
	}
	doc.Entries[key] = append(json.RawMessage(nil), value...)
	return f.write(doc)
}

// Delete removes key.
func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	doc, err := f.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := doc.Entries[key]; !ok {
		return nil
	}
	delete(doc.Entries, key)
	return f.write(doc)
}

// Keys returns the sorted keys with prefix.
func (f *FileStore) Keys(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc.Entries))
	for k := range doc.Entries {
		keys = append(keys, k)
	}
	return filterKeys(keys, prefix), nil
}

// Close marks the store closed.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// read loads the document. A missing file is an empty document.
func (f *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{
		SchemaVersion: FileSchemaVersion,
		Entries:       make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	if doc.SchemaVersion > FileSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (max: %d)", doc.SchemaVersion, FileSchemaVersion)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]json.RawMessage)
	}
	return doc, nil
}

// readForWrite is read for mutations. A corrupt file is renamed to
// <path>.corrupt-<unix seconds> and replaced by an empty document.
func (f *FileStore) readForWrite() (*fileDocument, error) {
	doc, err := f.read()
	if !errors.Is(err, ErrCorrupt) {
		return doc, err
	}

	aside := fmt.Sprintf("%s.corrupt-%d", f.path, time.Now().Unix())
	if err := os.Rename(f.path, aside); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to move corrupt %s aside: %w", f.path, err)
	}
	return &fileDocument{
		SchemaVersion: FileSchemaVersion,
		Entries:       make(map[string]json.RawMessage),
	}, nil
}

// write replaces the file atomically via a uniquely named temp file.
func (f *FileStore) write(doc *fileDocument) error {
	doc.SchemaVersion = FileSchemaVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
