// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_UpsertIsIdempotentOnUniquenessKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cycle := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	valid := cycle.Add(3 * time.Hour)

	row := NewDeterministicRow(FamilyGlobal, cycle, valid, "global/2024-01-01/00/03.bin", nil)
	inserted, err := m.Upsert(ctx, row)
	require.NoError(t, err)
	require.True(t, inserted)

	// Re-upserting the same identity updates in place, it does not insert.
	updated := NewDeterministicRow(FamilyGlobal, cycle, valid, "global/2024-01-01/00/03-refetched.bin", nil)
	inserted, err = m.Upsert(ctx, updated)
	require.NoError(t, err)
	require.False(t, inserted)

	got, err := m.FindExact(ctx, FamilyGlobal, row.UniquenessKey())
	require.NoError(t, err)
	require.Equal(t, "global/2024-01-01/00/03-refetched.bin", got.StorageKey())
}

func TestMemory_FindCoveringOrdersByNewestCycleThenTau(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cycle00 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cycle12 := cycle00.Add(12 * time.Hour)
	valid := cycle00.Add(18 * time.Hour)

	older := NewDeterministicRow(FamilyGlobal, cycle00, valid, "older", nil)
	newer := NewDeterministicRow(FamilyGlobal, cycle12, valid, "newer", nil)

	_, err := m.Upsert(ctx, older)
	require.NoError(t, err)
	_, err = m.Upsert(ctx, newer)
	require.NoError(t, err)

	rows, err := m.FindCovering(ctx, FamilyGlobal, valid, Constraints{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "newer", rows[0].StorageKey())
	require.Equal(t, "older", rows[1].StorageKey())
}

func TestMemory_FindCoveringNowcastFiltersToTauZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cycle := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	analysis := NewDeterministicRow(FamilyGlobal, cycle, cycle, "analysis", nil)
	forecast := NewDeterministicRow(FamilyGlobal, cycle.Add(-3*time.Hour), cycle, "forecast", nil)

	_, err := m.Upsert(ctx, analysis)
	require.NoError(t, err)
	_, err = m.Upsert(ctx, forecast)
	require.NoError(t, err)

	rows, err := m.FindCovering(ctx, FamilyGlobal, cycle, Constraints{Nowcast: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "analysis", rows[0].StorageKey())
}

func TestTropicalRow_UniquenessKeyIncludesStormIdentity(t *testing.T) {
	cycle := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	a := NewTropicalRow(FamilyTropicalDeterministic, cycle, cycle, "IAN", "AL", 2024, 9, 5, "", "a", nil)
	b := NewTropicalRow(FamilyTropicalDeterministic, cycle, cycle, "IAN", "AL", 2024, 9, 6, "", "b", nil)

	require.NotEqual(t, a.UniquenessKey(), b.UniquenessKey())
}

func TestTropicalAnalysisRow_TauAlwaysZero(t *testing.T) {
	cycle := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	valid := cycle.Add(6 * time.Hour)

	row := NewTropicalRow(FamilyTropicalAnalysis, cycle, valid, "IAN", "AL", 2024, 9, 5, "", "key", nil)
	require.Equal(t, 0, row.Tau())
}

func TestMemory_LockIsExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	unlock, err := m.Lock(ctx, "download:gfs")
	require.NoError(t, err)

	_, err = m.Lock(ctx, "download:gfs")
	require.ErrorIs(t, err, ErrAlreadyLocked)

	require.NoError(t, unlock(ctx))

	unlock2, err := m.Lock(ctx, "download:gfs")
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestMemory_ListCyclesDeduplicatesAndSorts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	c0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c1 := c0.Add(12 * time.Hour)

	for _, row := range []Row{
		NewDeterministicRow(FamilyGlobal, c1, c1.Add(time.Hour), "a", nil),
		NewDeterministicRow(FamilyGlobal, c0, c0.Add(time.Hour), "b", nil),
		NewDeterministicRow(FamilyGlobal, c0, c0.Add(2*time.Hour), "c", nil),
	} {
		_, err := m.Upsert(ctx, row)
		require.NoError(t, err)
	}

	cycles, err := m.ListCycles(ctx, FamilyGlobal)
	require.NoError(t, err)
	require.Equal(t, []time.Time{c0, c1}, cycles)
}
