package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes uploads beneath a directory that the HTTP server
// exposes under URLPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage creates dir when missing.
func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: local directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if urlPrefix == "" {
		urlPrefix = "/public"
	}
	return &LocalStorage{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Dir returns the root directory served to clients.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// URLPrefix returns the path the directory is mounted at.
func (s *LocalStorage) URLPrefix() string {
	return s.urlPrefix
}

// Put copies body to disk. The file is written to a temporary name and
// renamed into place so readers never observe partial uploads.
func (s *LocalStorage) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("storage: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Object{}, fmt.Errorf("storage: rename %s: %w", key, err)
	}

	return Object{Key: key, URL: s.urlPrefix + "/" + key}, nil
}

// Delete removes the stored file. Missing files are not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
