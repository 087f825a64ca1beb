// Package blob stores generated images and returns their public URLs.
package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrExists is returned by Put when the key already holds an object.
var ErrExists = errors.New("blob: object already exists")

// Store writes image objects.
type Store interface {
	// Put writes data under key and returns its public URL. Objects are
	// create-only: an existing key is left untouched and the returned error
	// wraps ErrExists.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
