// Package registry persists and restores fitted model artifacts under named slots.
package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no artifact exists for the name.
var ErrNotFound = errors.New("model artifact not found")

// Registry stores opaque model blobs. Save registers a new version and moves
// the "latest" pointer; Load returns the latest version's blob.
type Registry interface {
	Save(ctx context.Context, name string, blob []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}
