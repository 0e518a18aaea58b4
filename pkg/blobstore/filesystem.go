package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore keeps blobs as files under a base directory. Writes go to
// a temporary file in the target directory and are published with a rename,
// so concurrent writers race safely: last writer wins, partial files are
// never visible under the final key.
type FilesystemStore struct {
	basePath string
}

// NewFilesystemStore creates a filesystem-backed blob store rooted at basePath.
func NewFilesystemStore(basePath string) (*FilesystemStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilesystemStore{basePath: basePath}, nil
}

// Get reads the blob stored under key.
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Put writes the blob atomically under key.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte) error {
	path := s.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish blob %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a blob is stored under key.
func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := os.Stat(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	return true, nil
}

func (s *FilesystemStore) path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
