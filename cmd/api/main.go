// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Deployable HTTP server for the Request API: authenticates API keys,
// validates and enqueues build requests, and reports catalog coverage
// and request status.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/interrupt"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/requestapi"
	"github.com/thewaterinstitute/metget-server/internal/server"
	"github.com/thewaterinstitute/metget-server/internal/setup"
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

	apiServer, err := requestapi.NewServer(cfg, env, env.Requests())
	if err != nil {
		return fmt.Errorf("requestapi.NewServer: %w", err)
	}

	srv := server.New(env.Port(), apiServer.Routes(ctx))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server.Start: %w", err)
	}
	logger.Infof("request api listening on :%s", env.Port())

	<-ctx.Done()

	logger.Info("received shutdown")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server.Stop: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
