// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package credit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_DebitNeverGoesBelowZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(true)
	m.Put("key-a", MemoryKey{Enabled: true, Limit: 1000, Remaining: 1000})

	require.NoError(t, m.Debit(ctx, "key-a", 600))
	require.ErrorIs(t, m.Debit(ctx, "key-a", 600), ErrDenied)

	auth, err := m.Authorize(ctx, "key-a")
	require.NoError(t, err)
	require.Equal(t, 400, auth.Remaining)
}

func TestMemory_UnlimitedKeyNeverDenied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(true)
	m.Put("key-unlimited", MemoryKey{Enabled: true, Limit: -1, Remaining: 0})

	require.NoError(t, m.Debit(ctx, "key-unlimited", 1_000_000))
}

func TestMemory_EnforcementDisabledAlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(false)
	m.Put("key-a", MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	require.NoError(t, m.Debit(ctx, "key-a", 99999))
}

func TestMemory_UnknownKeyIsDenied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(true)

	_, err := m.Authorize(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownKey)

	require.ErrorIs(t, m.Debit(ctx, "nope", 1), ErrDenied)
}
