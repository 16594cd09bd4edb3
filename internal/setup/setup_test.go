// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package setup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/pgtest"
	"github.com/thewaterinstitute/metget-server/internal/setup"
)

// startTestServer boots a hermetic Postgres instance for the duration of
// the test, skipping when the postgres toolchain isn't installed.
func startTestServer(t *testing.T) (host, user, dbName string) {
	t.Helper()

	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv, err := pgtest.NewServer(ctx, dir)
	if errors.Is(err, pgtest.ErrNoPostgreSQL) {
		t.Skip("postgres toolchain not installed")
	}
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	require.True(t, srv.WaitForReady(ctx), "postgres did not become ready")
	require.NoError(t, srv.CreateUser(ctx, "metget", "metget"))
	require.NoError(t, srv.CreateDatabase(ctx, "metget", "metget"))

	return srv.Addr(), "metget", "metget"
}

func TestSetup_ConnectsAndMigrates(t *testing.T) {
	host, user, dbName := startTestServer(t)

	t.Setenv("SECRET_MANAGER", "NOOP")
	t.Setenv("DB_HOST", host)
	t.Setenv("DB_USER", user)
	t.Setenv("DB_NAME", dbName)
	t.Setenv("DB_PASSWORD", "metget")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("STORAGE_BACKEND", "MEMORY")
	t.Setenv("BUS_BACKEND", "MEMORY")
	t.Setenv("PORT", "9090")

	ctx := context.Background()
	cfg, env, err := setup.Setup(ctx)
	require.NoError(t, err)
	defer env.Close(ctx)

	require.Equal(t, "9090", env.Port())
	require.NotNil(t, env.Catalog())
	require.NotNil(t, env.Blobstore())
	require.NotNil(t, env.Bus())
	require.NotNil(t, env.Ledger())
	require.Equal(t, 3, cfg.MaxBuildAttempts)
}
