// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package download implements the Downloader Loop: one invocation polls
// a single upstream source via its sources.Adapter, skips candidates the
// catalog already has, fetches and stores the rest, and upserts them
// into the catalog. It never runs more than one overlapping invocation
// per service, guarded by a catalog advisory lock.
package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/internal/sources"
)

// Result summarizes one invocation of Run.
type Result struct {
	Discovered int
	Skipped    int
	Fetched    int
	Failed     int
}

// Run executes one Downloader Loop invocation for service against
// adapter, per the contract in spec.md §4.5:
//
//  1. adapter.Discover lists candidates.
//  2. Each candidate already present in the catalog (by UniquenessKey)
//     is skipped.
//  3. New candidates are fetched, stored at a deterministic storage key,
//     and upserted into the catalog.
//  4. A fetch or put failure skips that candidate with a structured log
//     line; it never aborts the loop or the candidates already
//     committed.
//
// since bounds Discover to forecast cycles at or after it — cmd/download
// passes the current time minus the configured lookback window.
func Run(ctx context.Context, env *serverenv.ServerEnv, service string, adapter sources.Adapter, since time.Time) (Result, error) {
	logger := logging.FromContext(ctx).Named("download").With("service", service)

	unlock, err := env.Catalog().Lock(ctx, "download:"+service)
	if err != nil {
		if err == catalog.ErrAlreadyLocked {
			logger.Infow("another invocation already holds the download lock, skipping")
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("download: acquiring lock for %s: %w", service, err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			logger.Errorw("failed to release download lock", "error", err)
		}
	}()

	candidates, err := adapter.Discover(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("download: discover for %s: %w", service, err)
	}

	family := adapter.Family()
	sortCandidates(candidates)

	res := Result{Discovered: len(candidates)}
	var merr *multierror.Error

	for _, c := range candidates {
		key := c.CatalogKey(family)

		existing, err := env.Catalog().FindExact(ctx, family, key)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("checking catalog for %s: %w", key, err))
			res.Failed++
			continue
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		if err := fetchAndStore(ctx, env, adapter, family, c); err != nil {
			logger.Warnw("candidate failed, continuing", "candidate", key, "error", err)
			merr = multierror.Append(merr, fmt.Errorf("candidate %s: %w", key, err))
			res.Failed++
			continue
		}
		res.Fetched++
	}

	logger.Infow("download invocation complete",
		"discovered", res.Discovered, "fetched", res.Fetched, "skipped", res.Skipped, "failed", res.Failed)

	return res, merr.ErrorOrNil()
}

// fetchAndStore fetches one candidate's bytes, writes them to the
// blobstore at its deterministic storage key, then upserts the catalog
// row. An upsert only happens after the put succeeds; a failed upsert
// leaves the stored blob in place and is not rolled back.
func fetchAndStore(ctx context.Context, env *serverenv.ServerEnv, adapter sources.Adapter, family catalog.Family, c sources.Candidate) error {
	body, err := adapter.Fetch(ctx, c)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	key := StorageKeyFor(family, c)
	if err := env.Blobstore().Put(ctx, key, payload); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}

	// Best-track files carry a storm's whole fix history in one body;
	// sources.NHC deliberately leaves per-point decoding to this loop
	// (see its doc comment) so the candidate stays one file, not one row.
	if family == catalog.FamilyTropicalAnalysis {
		rows, err := decodeATCFBestTrack(bytes.NewReader(payload), key)
		if err != nil {
			return fmt.Errorf("decoding best track: %w", err)
		}
		for _, row := range rows {
			if _, err := env.Catalog().Upsert(ctx, row); err != nil {
				return fmt.Errorf("cataloging %s: %w", key, err)
			}
		}
		return nil
	}

	row := rowFor(family, c, key)
	if _, err := env.Catalog().Upsert(ctx, row); err != nil {
		return fmt.Errorf("cataloging %s: %w", key, err)
	}
	return nil
}

// sortCandidates orders candidates ascending (ForecastCycle, ValidTime,
// Tau), the ordering guarantee spec.md §4.5 requires within one
// invocation.
func sortCandidates(candidates []sources.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.ForecastCycle.Equal(b.ForecastCycle) {
			return a.ForecastCycle.Before(b.ForecastCycle)
		}
		if !a.ValidTime.Equal(b.ValidTime) {
			return a.ValidTime.Before(b.ValidTime)
		}
		return a.Tau < b.Tau
	})
}

// rowFor builds the catalog.Row a fetched candidate becomes, matching
// the uniqueness shape its family uses.
func rowFor(family catalog.Family, c sources.Candidate, storageKey string) catalog.Row {
	meta := payloadMeta(c)

	switch {
	case family == catalog.FamilyEnsembleGlobal:
		return catalog.NewEnsembleRow(family, c.ForecastCycle, c.ValidTime, c.EnsembleMember, storageKey, meta)
	case family == catalog.FamilyTropicalDeterministic || family == catalog.FamilyTropicalEnsemble || family == catalog.FamilyTropicalAnalysis:
		return catalog.NewTropicalRow(family, c.ForecastCycle, c.ValidTime, c.StormName, c.Basin, c.StormYear, c.StormNumber, c.Advisory, c.EnsembleMember, storageKey, meta)
	default:
		return catalog.NewDeterministicRow(family, c.ForecastCycle, c.ValidTime, storageKey, meta)
	}
}

// payloadMeta records the upstream source URL for debugging; it is
// informational only and never consulted by selection or the Build
// Worker.
func payloadMeta(c sources.Candidate) json.RawMessage {
	b, err := json.Marshal(struct {
		SourceURL string `json:"source_url"`
	}{SourceURL: c.SourceURL})
	if err != nil {
		return nil
	}
	return b
}
