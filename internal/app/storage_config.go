package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlesng35/picketer/internal/storage"
)

// S3Config converts the bucket settings to the storage package representation.
func (c StorageConfig) S3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:          strings.TrimSpace(c.S3.Bucket),
		Region:          strings.TrimSpace(c.S3.Region),
		Endpoint:        strings.TrimSpace(c.S3.Endpoint),
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		PublicURL:       strings.TrimSpace(c.S3.PublicURL),
		UsePathStyle:    c.S3.UsePathStyle,
	}
}

// NewStorage builds the upload backend selected by Driver.
func (c StorageConfig) NewStorage(ctx context.Context) (storage.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", "local":
		return storage.NewLocalStorage(c.Local.Dir, c.Local.URLPrefix)
	case "s3":
		return storage.NewS3Storage(ctx, c.S3Config())
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", c.Driver)
	}
}
