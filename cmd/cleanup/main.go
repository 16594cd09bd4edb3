// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Deployable job that reclaims completed and errored request rows (and
// their output objects) past config.Config.RequestRetention, then
// exits. An external scheduler invokes this periodically; the schedule
// itself is out of scope here.
package main

import (
	"context"
	"fmt"

	"github.com/thewaterinstitute/metget-server/internal/cleanup"
	"github.com/thewaterinstitute/metget-server/internal/interrupt"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/setup"
)

func main() {
	ctx, done := interrupt.Context()
	defer done()

	if err := realMain(ctx); err != nil {
		logger := logging.FromContext(ctx)
		logger.Fatal(err)
	}
}

func realMain(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	cfg, env, err := setup.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	result, err := cleanup.Run(ctx, env, &cleanup.Config{TTL: cfg.RequestRetention, Timeout: cfg.CleanupTimeout})
	if err != nil {
		return fmt.Errorf("cleanup.Run: %w", err)
	}

	logger.Infow("cleanup invocation finished", "cutoff", result.Cutoff,
		"rows_deleted", result.RowsDeleted, "objects_deleted", result.ObjectsDeleted)
	return nil
}
