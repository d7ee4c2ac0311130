// Package blob abstracts per-site object storage. Each site owns one
// container; the gateway and the admin CLI talk to it through Store so tests
// never need a storage account.
package blob

import (
	"context"
	"io"
	"time"
)

// Object describes one stored blob.
type Object struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Store is the capability surface of a blob backend.
type Store interface {
	EnsureContainer(ctx context.Context, container string) error
	Upload(ctx context.Context, container, name string, r io.Reader) error
	Download(ctx context.Context, container, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, container, name string) error
	List(ctx context.Context, container, prefix string) ([]Object, error)
	Exists(ctx context.Context, container, name string) (bool, error)
}
