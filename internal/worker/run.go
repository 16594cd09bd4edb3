// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/buildkey"
	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/selection"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// outcome is what Run does with a delivery once processEnvelope
// returns: ack it off the bus, or leave it for redelivery.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeNackRequeue
)

// Run consumes build envelopes until ctx is cancelled or the bus closes
// its delivery channel. One invocation processes deliveries serially;
// running several invocations concurrently (one goroutine each, sharing
// a Worker) is how a process scales consumption, since nothing here
// holds state across envelopes besides the shared blob cache.
func (w *Worker) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("worker")

	deliveries, err := w.env.Bus().Consume(ctx)
	if err != nil {
		return fmt.Errorf("worker: starting consumption: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handleDelivery(ctx, logger, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, logger *zap.SugaredLogger, d bus.Delivery) {
	requestLogger := logger.With("request_id", d.Envelope.RequestID)

	switch w.processEnvelope(ctx, requestLogger, d.Envelope) {
	case outcomeAck:
		if err := d.Ack(); err != nil {
			requestLogger.Errorw("failed to ack delivery", "error", err)
		}
	case outcomeNackRequeue:
		if err := d.Nack(true); err != nil {
			requestLogger.Errorw("failed to nack delivery", "error", err)
		}
	}
}

// processEnvelope runs the state machine for one envelope (spec §4.9):
// claim the row, build, and either complete, fail, or leave it for
// redelivery.
func (w *Worker) processEnvelope(ctx context.Context, logger *zap.SugaredLogger, env bus.Envelope) outcome {
	requestID := env.RequestID.String()

	row, err := w.requests.TransitionRunning(ctx, requestID, w.cfg.VisibilityTimeout)
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrAlreadyTerminal):
			logger.Infow("dropping duplicate delivery for an already-terminal request")
			return outcomeAck
		case errors.Is(err, requests.ErrNotFound):
			logger.Errorw("delivery references a request row that does not exist, dropping", "error", err)
			return outcomeAck
		default:
			logger.Warnw("could not claim request row, leaving for redelivery", "error", err)
			return outcomeNackRequeue
		}
	}

	buildCtx, cancel := context.WithTimeout(ctx, w.cfg.BuildDeadline)
	defer cancel()

	if err := w.build(buildCtx, row, env); err != nil {
		return w.handleBuildError(ctx, logger, row, err)
	}
	return outcomeAck
}

// handleBuildError decides whether a build failure is retryable. A
// validation or coverage-gap failure can never succeed on retry, so it
// is recorded and acked immediately; anything else is retried until
// row.Try reaches MaxBuildAttempts.
func (w *Worker) handleBuildError(ctx context.Context, logger *zap.SugaredLogger, row *requests.Request, err error) outcome {
	permanent := apperror.Is(err, apperror.Validation) || apperror.Is(err, apperror.CoverageGap)

	if !permanent && row.Try < w.cfg.MaxBuildAttempts {
		logger.Warnw("build failed, leaving for retry", "try", row.Try, "max_try", w.cfg.MaxBuildAttempts, "error", err)
		return outcomeNackRequeue
	}

	logger.Errorw("build failed permanently", "try", row.Try, "permanent", permanent, "error", err)
	message, marshalErr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if marshalErr != nil {
		message = json.RawMessage(`{"error":"build failed"}`)
	}
	if failErr := w.requests.Fail(ctx, row.RequestID, message); failErr != nil {
		logger.Errorw("failed to record request failure", "error", failErr)
	}
	return outcomeAck
}

// build runs steps 2-6 of the Build Worker's state machine against an
// already-claimed row.
func (w *Worker) build(ctx context.Context, row *requests.Request, env bus.Envelope) error {
	var spec v1.RequestSpec
	if err := json.Unmarshal(env.SpecJSON, &spec); err != nil {
		return apperror.New(apperror.Validation, fmt.Errorf("worker: decoding request spec: %w", err))
	}

	selReq, err := selection.RequestFromSpec(&spec)
	if err != nil {
		return apperror.New(apperror.Validation, err)
	}

	plan, err := w.engine.Resolve(ctx, selReq)
	if err != nil {
		return err
	}
	if !spec.Backfill && plan.HasUnfillableHole() {
		return apperror.New(apperror.CoverageGap, fmt.Errorf("worker: plan has an unfillable hole and backfill is disabled"))
	}

	grids, err := w.regridAll(ctx, plan, spec.Domains)
	if err != nil {
		return fmt.Errorf("worker: regridding: %w", err)
	}

	encoded, err := w.encoder.Encode(ctx, spec.Format, &spec, grids)
	if err != nil {
		return fmt.Errorf("worker: encoding %s: %w", spec.Format, err)
	}

	if err := w.env.Blobstore().Put(ctx, buildkey.OutputKey(row.RequestID), encoded); err != nil {
		return fmt.Errorf("worker: storing output: %w", err)
	}

	summary := plan.Summarize()
	message, err := json.Marshal(v1.CoverageSummary{
		Covered:    summary.Covered,
		Backfilled: summary.Backfilled,
		Holes:      summary.Holes,
	})
	if err != nil {
		return fmt.Errorf("worker: marshaling coverage summary: %w", err)
	}

	if err := w.requests.Complete(ctx, row.RequestID, message); err != nil {
		return fmt.Errorf("worker: marking request complete: %w", err)
	}
	return nil
}

// regridAll walks plan's resolved stack, fetching each non-hole cell's
// bytes (through the blob cache) and handing them to the Regridder.
// wireDomains is sorted ascending by Level first, mirroring the
// Selection Engine's own domain sort, so index di lines up with
// plan.Timesteps[*].Domains[di].
func (w *Worker) regridAll(ctx context.Context, plan *selection.Plan, wireDomains []v1.Domain) ([]TimestepGrids, error) {
	sorted := sortedWireDomains(wireDomains)

	out := make([]TimestepGrids, len(plan.Timesteps))
	for ti, ts := range plan.Timesteps {
		tg := TimestepGrids{ValidTime: ts.ValidTime, Domains: make([]Grid, len(ts.Domains))}
		for di, entry := range ts.Domains {
			if entry.Hole {
				tg.Domains[di] = Grid{ValidTime: ts.ValidTime, Hole: true}
				continue
			}

			raw, err := w.fetchBlob(ctx, entry.StorageKey)
			if err != nil {
				return nil, fmt.Errorf("fetching %s: %w", entry.StorageKey, err)
			}

			grid, err := w.regridder.Regrid(ctx, entry, sorted[di], raw)
			if err != nil {
				return nil, fmt.Errorf("regridding %s: %w", entry.StorageKey, err)
			}
			grid.ValidTime = ts.ValidTime
			tg.Domains[di] = grid
		}
		out[ti] = tg
	}
	return out, nil
}

// fetchBlob is a cache-or-fetch read through the worker's blob cache,
// so a multi-domain build sharing a catalog row across timesteps pays
// for the blobstore round trip at most once per request.
func (w *Worker) fetchBlob(ctx context.Context, key string) ([]byte, error) {
	if cached, ok := w.blobCache.Get(key); ok {
		return cached, nil
	}
	raw, err := w.env.Blobstore().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	w.blobCache.Add(key, raw)
	return raw, nil
}

func sortedWireDomains(domains []v1.Domain) []v1.Domain {
	out := append([]v1.Domain(nil), domains...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
