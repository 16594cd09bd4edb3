// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package storage is the object-store adapter: put/get/delete of opaque
// byte blobs keyed by stable paths, plus time-limited presigned URLs for
// delivering build-worker output to clients.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/thewaterinstitute/metget-server/internal/logging"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Blobstore defines the minimum interface for an object-store backend.
// Put MUST be idempotent for a given key: repeated puts overwrite rather
// than conflict.
type Blobstore interface {
	Put(ctx context.Context, key string, contents []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Presign returns a time-limited URL from which key can be fetched
	// with an unauthenticated GET.
	Presign(ctx context.Context, key string) (string, error)
}

// Factory creates a new Blobstore using the provided context and config.
type Factory func(ctx context.Context, cfg Config) (Blobstore, error)

// NewBlobstore builds a Blobstore for cfg.Backend.
func NewBlobstore(ctx context.Context, cfg Config) (Blobstore, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("storage backend is %v", cfg.Backend)

	switch cfg.Backend {
	case BackendTypeS3:
		return NewS3Blobstore(ctx, cfg)
	case BackendTypeFilesystem:
		return NewFilesystemBlobstore(ctx, cfg)
	case BackendTypeMemory:
		return NewMemory(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown backend type %v", cfg.Backend)
	}
}
