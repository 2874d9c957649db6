package repository

import (
	"context"
	"io"
	"time"
)

// ObjectStore holds uploaded media files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}
