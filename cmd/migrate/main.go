// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Deployable job that applies pending catalog schema migrations and
// exits. Every MetGet-Server binary already runs the same migrations on
// startup through setup.Setup, so this exists only for CI/ops flows
// that want the schema current before any service binary starts, without
// standing up the blobstore or message bus setup.Setup would otherwise
// require.
package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/config"
	"github.com/thewaterinstitute/metget-server/internal/envconfig"
	"github.com/thewaterinstitute/metget-server/internal/interrupt"
	"github.com/thewaterinstitute/metget-server/internal/logging"
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

	// Only the database section is needed here; config.Load would also
	// resolve the secret manager and storage/bus settings this binary
	// never touches.
	var dbCfg config.DatabaseConfig
	if err := envconfig.Process(ctx, &dbCfg, nil); err != nil {
		return fmt.Errorf("loading database config: %w", err)
	}

	db, err := sql.Open("postgres", dbCfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("opening database connection: %w", err)
	}
	defer db.Close()

	logger.Infof("applying migrations to %s", dbCfg.String())
	if err := catalog.Migrate(db); err != nil {
		return fmt.Errorf("catalog.Migrate: %w", err)
	}

	logger.Info("migrations complete")
	return nil
}
