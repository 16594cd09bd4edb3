// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*Memory)(nil)

// Memory implements Blobstore entirely in-process. It backs the
// end-to-end scenario tests so they never touch a live bucket.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Blobstore.
func NewMemory(ctx context.Context, cfg Config) (Blobstore, error) {
	return &Memory{data: make(map[string][]byte)}, nil
}

func (s *Memory) Put(ctx context.Context, key string, contents []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = contents
	return nil
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("storage: get %q: %w", key, ErrNotFound)
	}
	return v, nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Memory) Presign(ctx context.Context, key string) (string, error) {
	return "memory://" + key, nil
}
