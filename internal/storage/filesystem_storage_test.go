// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesystemBlobstore_PutGetDelete(t *testing.T) {
	t.Parallel()

	tmp, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmp) })

	ctx := context.Background()
	s, err := NewFilesystemBlobstore(ctx, Config{Root: tmp})
	require.NoError(t, err)

	key := "global/2024-01-01/00/2024-01-01T03Z.bin"
	require.NoError(t, s.Put(ctx, key, []byte("contents")))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("contents"), got)

	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemBlobstore_DeleteMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	tmp, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmp) })

	ctx := context.Background()
	s, err := NewFilesystemBlobstore(ctx, Config{Root: tmp})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestFilesystemBlobstore_Presign(t *testing.T) {
	t.Parallel()

	tmp, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmp) })

	ctx := context.Background()
	s, err := NewFilesystemBlobstore(ctx, Config{Root: tmp})
	require.NoError(t, err)

	url, err := s.Presign(ctx, "out/result.zip")
	require.NoError(t, err)
	require.Contains(t, url, "out/result.zip")
}
