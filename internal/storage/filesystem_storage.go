// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*FilesystemBlobstore)(nil)

// FilesystemBlobstore implements Blobstore against a local directory. It
// exists for single-host development and integration tests that want a
// real filesystem without AWS credentials.
type FilesystemBlobstore struct {
	root string
}

// NewFilesystemBlobstore creates a Blobstore rooted at cfg.Root.
func NewFilesystemBlobstore(ctx context.Context, cfg Config) (Blobstore, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating root %q: %w", cfg.Root, err)
	}
	return &FilesystemBlobstore{root: cfg.Root}, nil
}

func (s *FilesystemBlobstore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FilesystemBlobstore) Put(ctx context.Context, key string, contents []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage: creating parent of %q: %w", key, err)
	}
	if err := os.WriteFile(p, contents, 0o644); err != nil {
		return fmt.Errorf("storage: put %q: %w", key, err)
	}
	return nil
}

func (s *FilesystemBlobstore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("storage: get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %q: %w", key, err)
	}
	return b, nil
}

func (s *FilesystemBlobstore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// Presign returns a file:// URL. There is no access control to apply
// locally; this exists for parity with the production backend in tests.
func (s *FilesystemBlobstore) Presign(ctx context.Context, key string) (string, error) {
	return "file://" + s.path(key), nil
}
