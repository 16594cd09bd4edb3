// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemory(ctx, Config{})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a/b.bin", []byte("payload")))

	got, err := s.Get(ctx, "a/b.bin")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	require.NoError(t, s.Delete(ctx, "a/b.bin"))

	_, err = s.Get(ctx, "a/b.bin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewBlobstore_UnknownBackend(t *testing.T) {
	ctx := context.Background()
	_, err := NewBlobstore(ctx, Config{Backend: "BOGUS"})
	require.Error(t, err)
}

func TestNewBlobstore_Memory(t *testing.T) {
	ctx := context.Background()
	bs, err := NewBlobstore(ctx, Config{Backend: BackendTypeMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, bs)
}
