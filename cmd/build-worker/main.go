// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Deployable consumer for the Build Worker: drains build envelopes off
// the message bus, resolves them against the catalog, and writes
// completed output objects to the blobstore.
package main

import (
	"context"
	"fmt"

	"github.com/thewaterinstitute/metget-server/internal/interrupt"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/setup"
	"github.com/thewaterinstitute/metget-server/internal/worker"
	"github.com/thewaterinstitute/metget-server/pkg/observability"
	pkgserver "github.com/thewaterinstitute/metget-server/pkg/server"
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

	exp, err := observability.NewFromEnv(&cfg.Observability)
	if err != nil {
		return fmt.Errorf("observability.NewFromEnv: %w", err)
	}
	stopMetrics, err := pkgserver.ServeMetrics(ctx, exp, cfg.MetricsPort)
	if err != nil {
		return fmt.Errorf("server.ServeMetrics: %w", err)
	}
	defer stopMetrics()

	w, err := worker.New(cfg, env, env.Requests(), worker.NullRegridder{}, worker.JSONEncoder{})
	if err != nil {
		return fmt.Errorf("worker.New: %w", err)
	}

	logger.Info("build worker consuming")
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("worker.Run: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
