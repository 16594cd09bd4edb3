// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package cleanup

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.opencensus.io/stats"

	"github.com/thewaterinstitute/metget-server/internal/buildkey"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/internal/storage"
)

// Result summarizes one cleanup invocation.
type Result struct {
	Cutoff         string
	RowsDeleted    int64
	ObjectsDeleted int64
}

// Run removes completed and errored request rows (and their output
// objects, if any) older than cfg.TTL. Output objects are deleted before
// their row so a crash between the two steps leaves an orphaned object
// rather than a dangling row a client could still be polling.
func Run(ctx context.Context, env *serverenv.ServerEnv, cfg *Config) (*Result, error) {
	logger := logging.FromContext(ctx).Named("cleanup")

	if env.Requests() == nil {
		return nil, fmt.Errorf("cleanup: missing request store in server environment")
	}

	cutoff, err := cutoffDate(cfg.TTL, cfg.DebugOverrideMinTTL)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}
	stats.Record(ctx, mCutoff.M(cutoff.Unix()))

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	ids, err := env.Requests().TerminalBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("cleanup: listing terminal rows: %w", err)
	}

	var merr *multierror.Error
	var objectsDeleted int64

	if blobstore := env.Blobstore(); blobstore != nil {
		for _, id := range ids {
			if deleteOutputObject(ctx, blobstore, id) {
				objectsDeleted++
			} else {
				merr = multierror.Append(merr, fmt.Errorf("deleting output object for %s", id))
			}
		}
		stats.Record(ctx, mObjectsDeleted.M(objectsDeleted))
		logger.Infow("purged output objects", "count", objectsDeleted, "considered", len(ids))
	}

	rowsDeleted, err := env.Requests().DeleteBefore(ctx, cutoff)
	if err != nil {
		merr = multierror.Append(merr, fmt.Errorf("deleting request rows: %w", err))
	} else {
		stats.Record(ctx, mRowsDeleted.M(rowsDeleted))
		logger.Infow("purged request rows", "count", rowsDeleted, "cutoff", cutoff)
	}

	if errs := merr.WrappedErrors(); len(errs) > 0 {
		logger.Errorw("cleanup finished with errors", "errors", errs)
		return nil, merr
	}

	return &Result{
		Cutoff:         cutoff.Format("2006-01-02T15:04:05Z"),
		RowsDeleted:    rowsDeleted,
		ObjectsDeleted: objectsDeleted,
	}, nil
}

// deleteOutputObject removes requestID's output object, treating a
// missing object (a request that errored before producing one) as
// success rather than failure. Blobstore.Delete reports no error for a
// missing key, so such a row still counts toward ObjectsDeleted.
func deleteOutputObject(ctx context.Context, blobstore storage.Blobstore, requestID string) bool {
	err := blobstore.Delete(ctx, buildkey.OutputKey(requestID))
	if err == nil || err == storage.ErrNotFound {
		return true
	}
	stats.Record(ctx, mObjectDeleteFailed.M(1))
	return false
}
