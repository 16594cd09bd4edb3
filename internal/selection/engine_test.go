// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

func mustUpsert(t *testing.T, cat catalog.Catalog, row catalog.Row) {
	t.Helper()
	_, err := cat.Upsert(context.Background(), row)
	require.NoError(t, err)
}

func TestEngine_SingleForecastPicksOneCoveringCycle(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)

	// Cycle 00z covers both t0 and t1; cycle 06z (newer) only covers t1.
	// The single-forecast request must fall back to the 00z cycle since
	// it's the only one covering the whole window.
	cycle00 := t0
	cycle06 := t0.Add(6 * time.Hour)
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, cycle00, t0, "gfs/00/f000", nil))
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, cycle00, t1, "gfs/00/f006", nil))
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, cycle06, t1, "gfs/06/f000", nil))

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t1, TimeStep: 6 * time.Hour,
		MultipleForecasts: false,
		Domains:           []DomainSpec{{Service: "gfs", Level: 0}},
	})
	require.NoError(t, err)
	require.Len(t, plan.Timesteps, 2)

	assert.Equal(t, "gfs/00/f000", plan.Timesteps[0].Domains[0].StorageKey)
	assert.Equal(t, "gfs/00/f006", plan.Timesteps[1].Domains[0].StorageKey, "the 06z cycle alone doesn't cover t0, so the request must stick with 00z throughout")
}

func TestEngine_MultipleForecastsPicksNewestPerTimestep(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 6, 0, 0, 0, time.UTC)

	cycle00 := t0.Add(-6 * time.Hour)
	cycle06 := t0
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, cycle00, t0, "gfs/00/f006", nil))
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, cycle06, t0, "gfs/06/f000", nil))

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		MultipleForecasts: true,
		Domains:           []DomainSpec{{Service: "gfs", Level: 0}},
	})
	require.NoError(t, err)
	require.Len(t, plan.Timesteps, 1)
	assert.Equal(t, "gfs/06/f000", plan.Timesteps[0].Domains[0].StorageKey, "the newest cycle covering this timestep should win")
}

func TestEngine_NowcastFiltersNonZeroTau(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, t0.Add(-6*time.Hour), t0, "gfs/old/f006", nil))
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyGlobal, t0, t0, "gfs/new/f000", nil))

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		Nowcast:           true,
		MultipleForecasts: true,
		Domains:           []DomainSpec{{Service: "gfs", Level: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gfs/new/f000", plan.Timesteps[0].Domains[0].StorageKey)
}

func TestEngine_NoCoverageProducesHoleWithoutBackfill(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		MultipleForecasts: true,
		Backfill:          false,
		Domains:           []DomainSpec{{Service: "gfs", Level: 0}},
	})
	require.NoError(t, err)
	assert.True(t, plan.Timesteps[0].Domains[0].Hole)
	assert.True(t, plan.HasUnfillableHole())
}

func TestEngine_BackfillFillsHigherLevelHoleFromLowerLevel(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	// NAM (level 0, the finer/lower level) has coverage; GFS (level 1,
	// higher) doesn't. backfill=true should carry the NAM entry up to
	// fill GFS's cell.
	mustUpsert(t, cat, catalog.NewDeterministicRow(catalog.FamilyRegional, t0, t0, "nam/f000", nil))

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		MultipleForecasts: true,
		Backfill:          true,
		Domains: []DomainSpec{
			{Service: "nam", Level: 0},
			{Service: "gfs", Level: 1},
		},
	})
	require.NoError(t, err)
	require.False(t, plan.HasUnfillableHole())

	nam := plan.Timesteps[0].Domains[0]
	assert.False(t, nam.Backfilled)
	assert.Equal(t, "nam/f000", nam.StorageKey)

	gfs := plan.Timesteps[0].Domains[1]
	assert.True(t, gfs.Backfilled)
	assert.Equal(t, "nam/f000", gfs.StorageKey)
}

func TestEngine_EnsembleDomainDefaultsToMeanMember(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	mustUpsert(t, cat, catalog.NewEnsembleRow(catalog.FamilyEnsembleGlobal, t0, t0, "mean", "gefs/mean/f000", nil))
	mustUpsert(t, cat, catalog.NewEnsembleRow(catalog.FamilyEnsembleGlobal, t0, t0, "p01", "gefs/p01/f000", nil))

	eng := New(cat)
	plan, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		MultipleForecasts: true,
		Domains:           []DomainSpec{{Service: "gefs", Level: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gefs/mean/f000", plan.Timesteps[0].Domains[0].StorageKey)
}

func TestEngine_UnknownServiceFailsFast(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	eng := New(cat)
	_, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		Domains: []DomainSpec{{Service: "not-a-service", Level: 0}},
	})
	assert.Error(t, err)
}

func TestEngine_StormScopedDomainWithoutIdentityFailsFast(t *testing.T) {
	cat := catalog.NewMemory()
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	eng := New(cat)
	_, err := eng.Resolve(context.Background(), Request{
		Start: t0, End: t0, TimeStep: time.Hour,
		Domains: []DomainSpec{{Service: "hwrf", Level: 0}},
	})
	assert.Error(t, err, "storm-scoped domains must fail at plan build time, not per timestep")
}
