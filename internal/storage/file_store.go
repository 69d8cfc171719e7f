package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore keeps photos in a local directory; handles are file:// URLs
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving photo dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

// Put writes the photo and returns its file handle
func (s *FileStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid photo name %q", name)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

// Get reads any file handle, including files outside the store's directory
func (s *FileStore) Get(ctx context.Context, handle string) ([]byte, error) {
	path, err := filePath(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return data, nil
}

// Delete removes a photo written by this store
func (s *FileStore) Delete(ctx context.Context, handle string) error {
	path, err := filePath(handle)
	if err != nil {
		return err
	}
	if filepath.Dir(path) != s.dir {
		return fmt.Errorf("photo %q is not owned by this store", handle)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}

func filePath(handle string) (string, error) {
	u, err := url.Parse(handle)
	if err != nil {
		return "", fmt.Errorf("invalid photo handle: %w", err)
	}
	if u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("not a file handle: %q", handle)
	}
	return filepath.FromSlash(u.Path), nil
}
