// Package blob stores uploaded document bytes and hands out time-limited
// retrieval URLs for them.
package blob

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("blob: object not found")

// Object describes a stored blob. URL is the stable storage location, not a
// retrieval handle.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Store is implemented by every storage backend.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// URL returns a retrieval handle valid for ttl. filename, when set, is
	// offered to the browser as the download name.
	URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}
