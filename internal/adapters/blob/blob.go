// Package blob stores raw wallpaper image bytes on the local filesystem,
// keyed by wallpaper id.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store provides read/write access to wallpaper image bytes.
type Store interface {
	// Save writes the image bytes for id, replacing any previous blob.
	Save(ctx context.Context, id string, data []byte) error
	// Load returns the image bytes for id, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)
	// Remove deletes the blob for id. Removing an absent blob is a no-op.
	Remove(ctx context.Context, id string) error
}

// FileStore is a Store backed by a flat directory of blob files.
type FileStore struct {
	dir string
}

// NewFileStore creates the blob directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure blob directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save implements Store.Save. The write goes through a temp file and a
// rename so readers never observe a partial blob.
func (s *FileStore) Save(ctx context.Context, id string, data []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish blob: %w", err)
	}
	return nil
}

// Load implements Store.Load.
func (s *FileStore) Load(ctx context.Context, id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Remove implements Store.Remove.
func (s *FileStore) Remove(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// path rejects ids that could escape the blob directory. Ids are UUIDs
// in practice, so anything with a separator is hostile input.
func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id), nil
}
