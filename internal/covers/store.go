// Package covers stores uploaded book cover images on disk under
// opaque, collision-resistant names.
package covers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxUploadSize caps cover uploads at 10 MiB.
const MaxUploadSize = 10 << 20

// ErrInvalidName is returned for cover names that try to escape the
// uploads directory.
var ErrInvalidName = errors.New("invalid cover name")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store keeps uploaded covers in a single flat directory. Names are
// generated from the upload timestamp, so they never collide with a
// previous upload and carry no user-controlled path data.
type Store struct {
	dir string
}

// NewStore creates a cover store at the specified directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes an uploaded cover and returns its stored name. The
// original filename contributes only its extension.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported cover format %q", ext)
	}

	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)

	// Write to a temp file first so a failed upload never leaves a
	// half-written cover behind
	tmpFile, err := os.CreateTemp(s.dir, "upload_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, io.LimitReader(r, MaxUploadSize)); err != nil {
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}

	return name, nil
}

// Path resolves a stored cover name to its on-disk path. Names carrying
// path separators or traversal are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored cover. Removing a cover that is already gone
// is a no-op.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the uploads directory path.
func (s *Store) Dir() string {
	return s.dir
}
