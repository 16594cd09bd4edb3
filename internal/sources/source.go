// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package sources knows how to list and fetch forecast cycles from
// upstream providers (NOMADS, the National Hurricane Center, and similar
// distribution points) and turn them into catalog.Row entries. The
// Downloader Loop drives an Adapter; the Adapter never touches the
// catalog or blobstore directly.
package sources

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

// Candidate is one forecast field an Adapter has discovered upstream but
// not yet fetched. Tau is redundant with ForecastCycle/ValidTime but kept
// explicit since several providers (AWS big-data buckets, NOMADS
// directory names) name files by lead hour rather than a clock time.
type Candidate struct {
	ForecastCycle time.Time
	ValidTime     time.Time
	Tau           int

	EnsembleMember string
	StormName      string
	Basin          string
	StormYear      int
	StormNumber    int
	Advisory       int

	// SourceURL is where Fetch retrieves the payload from. Adapters that
	// need more context to fetch (FTP paths, AWS keys) can stash it here
	// in whatever form Fetch itself understands.
	SourceURL string
}

// CatalogKey is the UniquenessKey catalog.Row implementations for this
// candidate's family would compute, used by the Downloader Loop to skip
// re-fetching a candidate the catalog already has.
func (c Candidate) CatalogKey(family catalog.Family) string {
	switch kindForFamily(family) {
	case kindEnsembleSource:
		return fmt.Sprintf("%s|%d|%d|%s", family, c.ForecastCycle.Unix(), c.ValidTime.Unix(), c.EnsembleMember)
	case kindTropicalSource:
		return fmt.Sprintf("%s|%s|%d|%d|%d|%d|%s",
			family, c.Basin, c.StormYear, c.StormNumber, c.Advisory, c.ValidTime.Unix(), c.EnsembleMember)
	default:
		return fmt.Sprintf("%s|%d|%d", family, c.ForecastCycle.Unix(), c.ValidTime.Unix())
	}
}

// Adapter is the capability a single upstream provider implements.
type Adapter interface {
	// Family is the catalog family this adapter populates.
	Family() catalog.Family

	// Discover lists candidates with a forecast cycle at or after since.
	// Implementations should return candidates in ascending
	// (ForecastCycle, ValidTime, Tau) order, the order the Downloader
	// Loop processes them in.
	Discover(ctx context.Context, since time.Time) ([]Candidate, error)

	// Fetch retrieves the raw payload for a candidate Discover returned.
	// The caller is responsible for closing the returned ReadCloser.
	Fetch(ctx context.Context, c Candidate) (io.ReadCloser, error)
}

var (
	registryMu sync.Mutex
	registry   = map[catalog.Family]Adapter{}
)

// Register associates an Adapter with the family it populates. Intended
// to be called from cmd/download's wiring, not from init(), so the set
// of active adapters is explicit at the call site.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Family()] = a
}

// For returns the adapter registered for family, or false if none has
// been registered.
func For(family catalog.Family) (Adapter, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	a, ok := registry[family]
	return a, ok
}

// Registered returns every family with a registered adapter, in a stable
// order, used by the Downloader Loop to iterate "all active sources".
func Registered() []catalog.Family {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]catalog.Family, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type sourceKind int

const (
	kindDeterministicSource sourceKind = iota
	kindEnsembleSource
	kindTropicalSource
)

// kindForFamily mirrors catalog.Family's private kind() method, which
// this package cannot call directly since it lives outside internal/catalog.
func kindForFamily(family catalog.Family) sourceKind {
	switch family {
	case catalog.FamilyEnsembleGlobal:
		return kindEnsembleSource
	case catalog.FamilyTropicalDeterministic, catalog.FamilyTropicalEnsemble, catalog.FamilyTropicalAnalysis:
		return kindTropicalSource
	default:
		return kindDeterministicSource
	}
}
