// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// These adapters talk to S3 buckets directly (see bigdata.go, gefs.go,
// ctcx.go) and so aren't exercised against the real network in unit
// tests; what's worth pinning down here is that the object-key patterns
// they match against actually decode the fields the rest of the package
// depends on, and that building an adapter (which only assembles an AWS
// SDK session, making no network call) succeeds.

func TestNewGFS_BuildsWithoutNetworkCall(t *testing.T) {
	g, err := NewGFS("us-east-1")
	require.NoError(t, err)
	require.Equal(t, catalog.FamilyGlobal, g.Family())

	m := g.filePattern.FindStringSubmatch("gfs.20240101/06/atmos/gfs.t06z.pgrb2.0p25.f012")
	require.NotNil(t, m)
	groups := namedGroups(g.filePattern, m)
	require.Equal(t, "2024", groups["year"])
	require.Equal(t, "06", groups["hour"])
	require.Equal(t, "012", groups["tau"])
}

func TestNewNAM_BuildsAndParsesKey(t *testing.T) {
	n, err := NewNAM("us-east-1")
	require.NoError(t, err)
	require.Equal(t, catalog.FamilyRegional, n.Family())

	m := n.filePattern.FindStringSubmatch("nam.20240101/nam.t12z.awphys24.tm00.grib2")
	require.NotNil(t, m)
	require.Equal(t, "24", namedGroups(n.filePattern, m)["tau"])
}

func TestGEFSKeyPattern_ParsesMember(t *testing.T) {
	m := gefsKeyPattern.FindStringSubmatch("gefs.20240101/00/atmos/pgrb2sp25/gep03.t00z.pgrb2s.0p25.f024")
	require.NotNil(t, m)
	g := namedGroups(gefsKeyPattern, m)
	require.Equal(t, "p03", g["member"])
	require.Equal(t, "024", g["tau"])

	// Control member keeps the literal "c00" code, not a synthetic
	// "mean" — any ensemble_member default policy belongs to the
	// selection engine, not this adapter.
	m = gefsKeyPattern.FindStringSubmatch("gefs.20240101/00/atmos/pgrb2sp25/gec00.t00z.pgrb2s.0p25.f000")
	require.NotNil(t, m)
	require.Equal(t, "c00", namedGroups(gefsKeyPattern, m)["member"])
}

func TestCTCXKeyPattern_ParsesStormAndMember(t *testing.T) {
	m := ctcxKeyPattern.FindStringSubmatch("ctcx/al092024/2024082500/ctcx.09.2024082500.ens03.nc")
	require.NotNil(t, m)
	g := namedGroups(ctcxKeyPattern, m)
	require.Equal(t, "09", g["number"])
	require.Equal(t, "03", g["member"])
}

func TestRegistry_RegisterAndFor(t *testing.T) {
	g, err := NewGFS("us-east-1")
	require.NoError(t, err)
	Register(g)

	got, ok := For(catalog.FamilyGlobal)
	require.True(t, ok)
	require.Equal(t, catalog.FamilyGlobal, got.Family())

	_, ok = For(catalog.Family("nonexistent"))
	require.False(t, ok)
}

func TestCandidate_CatalogKey(t *testing.T) {
	cycle := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	valid := cycle.Add(6 * time.Hour)

	det := Candidate{ForecastCycle: cycle, ValidTime: valid}
	require.NotEmpty(t, det.CatalogKey(catalog.FamilyGlobal))

	ens := Candidate{ForecastCycle: cycle, ValidTime: valid, EnsembleMember: "p01"}
	require.Contains(t, ens.CatalogKey(catalog.FamilyEnsembleGlobal), "p01")

	trop := Candidate{ValidTime: valid, Basin: "al", StormYear: 2024, StormNumber: 9, Advisory: 12}
	require.Contains(t, trop.CatalogKey(catalog.FamilyTropicalDeterministic), "al")
}
