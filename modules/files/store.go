package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage errors.
var (
	ErrEmptyName = errors.New("file name is required")
	ErrTooLarge  = errors.New("file exceeds the maximum allowed size")
	ErrNotFound  = errors.New("file not found")
)

// DiskStore writes uploads to a flat directory. Stored names are the
// sanitized original basename prefixed with an upload timestamp, so
// concurrent uploads of the same filename do not clobber each other.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates a DiskStore rooted at dir, rejecting files larger
// than maxSize bytes.
func NewDiskStore(dir string, maxSize int64) *DiskStore {
	return &DiskStore{dir: dir, maxSize: maxSize}
}

// Init creates the storage directory if it does not exist.
func (s *DiskStore) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// MaxSize returns the per-file size cap in bytes.
func (s *DiskStore) MaxSize() int64 {
	return s.maxSize
}

// sanitizeName reduces a client-supplied filename to a safe basename.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return name
}

// Save writes the contents of r under a timestamped name and returns the
// stored name and byte count. Returns ErrTooLarge when r yields more than
// the configured cap.
func (s *DiskStore) Save(originalName string, r io.Reader) (storedName string, size int64, err error) {
	base := sanitizeName(originalName)
	if base == "" {
		return "", 0, ErrEmptyName
	}

	storedName = time.Now().Format("20060102_150405") + "_" + base
	path := filepath.Join(s.dir, storedName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	// Read one byte past the cap so an exactly-at-limit file is accepted.
	size, err = io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to close file: %w", closeErr)
	}
	if size > s.maxSize {
		os.Remove(path)
		return "", 0, ErrTooLarge
	}
	return storedName, size, nil
}

// Open returns a reader for a stored file. The name is sanitized again so a
// crafted download path cannot escape the storage directory.
func (s *DiskStore) Open(storedName string) (io.ReadCloser, error) {
	base := sanitizeName(storedName)
	if base == "" || base != storedName {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, base))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *DiskStore) Remove(storedName string) error {
	base := sanitizeName(storedName)
	if base == "" || base != storedName {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, base)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
