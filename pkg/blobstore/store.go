// Package blobstore abstracts the durable object store holding model
// artifacts behind a small key-value interface. Paths/keys are
// configuration, not protocol.
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/retailpulse/churnrisk/pkg/config"
)

// ErrNotFound is returned by Get when a key has no blob.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the durable storage contract for model artifacts. Put must
// publish atomically per key: readers see either the previous blob or the
// complete new one, never a torn write.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates the blob store backend selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageBackend {
	case "filesystem":
		return NewFilesystemStore(cfg.StoragePath)
	case "s3":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
