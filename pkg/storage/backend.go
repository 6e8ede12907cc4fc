package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Get when the requested object is absent.
// Callers that treat a missing snapshot as a cold start check for it
// with errors.Is.
var ErrNotExist = errors.New("storage: object does not exist")

// BlobStore persists opaque blobs under string keys. Implementations
// back pricing snapshots and exported reports with either the local
// filesystem or S3.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
