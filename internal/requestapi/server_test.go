// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/config"
	"github.com/thewaterinstitute/metget-server/internal/credit"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/internal/storage"
)

// testHarness bundles a Server with the memory backends behind it, so
// tests can mutate catalog/ledger/bus state directly.
type testHarness struct {
	srv     *Server
	cat     catalog.Catalog
	ledger  *credit.Memory
	busMem  *bus.Memory
	reqs    *requests.Memory
	cfg     *config.Config
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	bs, err := storage.NewMemory(ctx, storage.Config{})
	require.NoError(t, err)

	cat := catalog.NewMemory()
	ledger := credit.NewMemory(true)
	busMem := bus.NewMemory()
	reqs := requests.NewMemory()

	env := serverenv.New(ctx,
		serverenv.WithCatalog(cat),
		serverenv.WithBlobstore(bs),
		serverenv.WithBus(busMem),
		serverenv.WithLedger(ledger),
	)

	cfg := &config.Config{RateLimitPerMinute: 60}

	srv, err := NewServer(cfg, env, reqs)
	require.NoError(t, err)

	return &testHarness{srv: srv, cat: cat, ledger: ledger, busMem: busMem, reqs: reqs, cfg: cfg}
}
