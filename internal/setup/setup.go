// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package setup runs the common bootstrap sequence shared by every
// MetGet-Server binary: load configuration, connect the catalog database,
// and wire up the object store, message bus, credit ledger, and secret
// manager backends into a serverenv.ServerEnv.
package setup

import (
	"context"
	"database/sql"
	"fmt"

	"contrib.go.opencensus.io/integrations/ocsql"
	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/lib/pq"

	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/config"
	"github.com/thewaterinstitute/metget-server/internal/credit"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/secrets"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/internal/storage"
	"github.com/thewaterinstitute/metget-server/pkg/observability"
)

// Setup loads configuration and connects every backend a MetGet-Server
// process needs, returning both the config (so binaries can read
// process-specific fields like MaxBuildAttempts) and the assembled
// ServerEnv. Callers must defer env.Close(ctx).
func Setup(ctx context.Context) (*config.Config, *serverenv.ServerEnv, error) {
	logger := logging.FromContext(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("setup: loading config: %w", err)
	}

	sm, err := secrets.ManagerFor(ctx, cfg.Secrets.ManagerType)
	if err != nil {
		return nil, nil, fmt.Errorf("setup: building secret manager: %w", err)
	}
	sm = secrets.WrapCacher(ctx, sm, cfg.Secrets.CacheTTL)

	logger.Infof("connecting to catalog database %v", cfg.Database.String())

	// Registering through ocsql gives the one-off migration connection
	// OpenCensus spans/metrics for free; the pool used for the rest of
	// the process's queries goes through pgx directly.
	tracedDriver, err := ocsql.Register("postgres", ocsql.WithAllTraceOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("setup: registering traced sql driver: %w", err)
	}
	observability.EnableSQLViews()

	migrationDB, err := sql.Open(tracedDriver, cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("setup: opening migration connection: %w", err)
	}
	defer migrationDB.Close()
	if err := catalog.Migrate(migrationDB); err != nil {
		return nil, nil, fmt.Errorf("setup: running catalog migrations: %w", err)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("setup: connecting to database: %w", err)
	}

	store := catalog.Open(pool)
	ledger := credit.New(pool, cfg.Credit)
	reqStore := requests.Open(pool)

	blobstore, err := storage.NewBlobstore(ctx, cfg.Storage)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("setup: building blobstore: %w", err)
	}

	messageBus, err := bus.NewBus(ctx, cfg.Bus)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("setup: building bus: %w", err)
	}

	env := serverenv.New(ctx,
		serverenv.WithPort(cfg.Port),
		serverenv.WithSecretManager(sm),
		serverenv.WithCatalog(store),
		serverenv.WithBlobstore(blobstore),
		serverenv.WithBus(messageBus),
		serverenv.WithLedger(ledger),
		serverenv.WithRequests(reqStore),
	)

	return cfg, env, nil
}
