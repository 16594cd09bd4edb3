// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package download

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/internal/sources"
	"github.com/thewaterinstitute/metget-server/internal/storage"
)

// fakeAdapter serves a fixed candidate list and lets tests fail
// specific fetches to exercise the partial-failure path.
type fakeAdapter struct {
	family     catalog.Family
	candidates []sources.Candidate
	bodies     map[string]string
	failFetch  map[string]bool
}

func (f *fakeAdapter) Family() catalog.Family { return f.family }

func (f *fakeAdapter) Discover(ctx context.Context, since time.Time) ([]sources.Candidate, error) {
	return f.candidates, nil
}

func (f *fakeAdapter) Fetch(ctx context.Context, c sources.Candidate) (io.ReadCloser, error) {
	if f.failFetch[c.SourceURL] {
		return nil, fmt.Errorf("fake: injected failure for %s", c.SourceURL)
	}
	return io.NopCloser(strings.NewReader(f.bodies[c.SourceURL])), nil
}

func newTestEnv(t *testing.T) *serverenv.ServerEnv {
	t.Helper()
	bs, err := storage.NewMemory(context.Background(), storage.Config{})
	require.NoError(t, err)
	return serverenv.New(context.Background(),
		serverenv.WithCatalog(catalog.NewMemory()),
		serverenv.WithBlobstore(bs),
	)
}

func TestRun_FetchesNewCandidatesAndSkipsCataloged(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	adapter := &fakeAdapter{
		family: catalog.FamilyGlobal,
		candidates: []sources.Candidate{
			{ForecastCycle: t0, ValidTime: t0.Add(6 * time.Hour), Tau: 6, SourceURL: "f006"},
			{ForecastCycle: t0, ValidTime: t0, Tau: 0, SourceURL: "f000"},
		},
		bodies: map[string]string{"f000": "payload-000", "f006": "payload-006"},
	}

	res, err := Run(context.Background(), env, "gfs", adapter, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Discovered)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 0, res.Skipped)

	// Re-running should skip both now that they're cataloged.
	res, err = Run(context.Background(), env, "gfs", adapter, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, res.Fetched)
}

func TestRun_PartialFailureContinuesAndReportsError(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	adapter := &fakeAdapter{
		family: catalog.FamilyGlobal,
		candidates: []sources.Candidate{
			{ForecastCycle: t0, ValidTime: t0, Tau: 0, SourceURL: "ok"},
			{ForecastCycle: t0, ValidTime: t0.Add(6 * time.Hour), Tau: 6, SourceURL: "bad"},
		},
		bodies:    map[string]string{"ok": "payload-ok"},
		failFetch: map[string]bool{"bad": true},
	}

	res, err := Run(context.Background(), env, "gfs", adapter, time.Time{})
	assert.Error(t, err, "a failed candidate should surface as an error from Run")
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Failed)

	// The good candidate should still have been committed despite the
	// other candidate's failure.
	key := sources.Candidate{ForecastCycle: t0, ValidTime: t0, Tau: 0}.CatalogKey(catalog.FamilyGlobal)
	row, err := env.Catalog().FindExact(context.Background(), catalog.FamilyGlobal, key)
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestRun_OverlappingInvocationSkipsRatherThanBlocks(t *testing.T) {
	env := newTestEnv(t)
	adapter := &fakeAdapter{family: catalog.FamilyGlobal}

	unlock, err := env.Catalog().Lock(context.Background(), "download:gfs")
	require.NoError(t, err)
	defer unlock(context.Background())

	res, err := Run(context.Background(), env, "gfs", adapter, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestStorageKeyFor_DeterministicFamily(t *testing.T) {
	t0 := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	key := StorageKeyFor(catalog.FamilyGlobal, sources.Candidate{ForecastCycle: t0, Tau: 24})
	assert.Equal(t, "global/20240901/12/f024", key)
}

func TestStorageKeyFor_EnsembleFamilyDefaultsUnknownMember(t *testing.T) {
	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	key := StorageKeyFor(catalog.FamilyEnsembleGlobal, sources.Candidate{ForecastCycle: t0, Tau: 6, EnsembleMember: "p01"})
	assert.Equal(t, "ensemble_global/20240901/00/p01/f006", key)
}

func TestDecodeATCFBestTrack_ParsesFixLines(t *testing.T) {
	body := "AL, 09, 2024090100,   , BEST,   0,  251N,  771W,  45, 1004, TS,  34, NEQ,   60,   60,   40,   40, 1008,  180,   0,   0,    0,    ,   0,    ,   0,    0,HELENE,            , 0,    ,    0,    0,    0,    0,             ,    ,\n" +
		"AL, 09, 2024090106,   , BEST,   0,  258N,  780W,  50, 1000, TS,  34, NEQ,   70,   70,   50,   50, 1008,  190,   0,   0,    0,    ,   0,    ,   0,    0,HELENE,            , 0,    ,    0,    0,    0,    0,             ,    ,\n"

	rows, err := decodeATCFBestTrack(strings.NewReader(body), "tropical_analysis/2024/al09/fixes")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tr0, ok := rows[0].(*catalog.TropicalRow)
	require.True(t, ok)
	assert.Equal(t, "al", tr0.Basin)
	assert.Equal(t, 9, tr0.StormNumber)
	assert.Equal(t, 1, tr0.Advisory)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), tr0.ValidTime())

	tr1, ok := rows[1].(*catalog.TropicalRow)
	require.True(t, ok)
	assert.Equal(t, 2, tr1.Advisory)
	assert.Equal(t, time.Date(2024, 9, 1, 6, 0, 0, 0, time.UTC), tr1.ValidTime())
}
