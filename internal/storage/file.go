package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one file per key inside a directory.
// Writes go to a temp file that is renamed over the target, so readers never see a partial blob.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the file stored for key
func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, "file", "Get", key)
	path, err := f.path(key)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		endSpan(span, ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed to read blob %s: %w", key, err)
		endSpan(span, err)
		return nil, err
	}
	endSpan(span, nil)
	return data, nil
}

// Put atomically replaces the file stored for key
func (f *FileStore) Put(ctx context.Context, key string, data []byte) error {
	_, span := startSpan(ctx, "file", "Put", key)
	path, err := f.path(key)
	if err != nil {
		endSpan(span, err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err = writeFileAtomic(path, data)
	endSpan(span, err)
	return err
}

// Close is a no-op
func (f *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace blob file: %w", err)
	}
	return nil
}
