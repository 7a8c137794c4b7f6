package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Object describes a stored upload.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Storage persists uploaded report images.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision free object key under prefix, keeping the
// extension of the original filename.
func NewKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()),
		uuid.NewString()+ext,
	)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	cleaned := path.Clean("/" + key)
	if key == "" || cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
