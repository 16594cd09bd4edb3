// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
	"github.com/thewaterinstitute/metget-server/internal/credit"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

func TestHandleStatus_ReportsCycleRangePerFamily(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	t0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	_, err := h.cat.Upsert(context.Background(), catalog.NewDeterministicRow(catalog.FamilyGlobal, t0, t0, "gfs/00/f000", nil))
	require.NoError(t, err)
	_, err = h.cat.Upsert(context.Background(), catalog.NewDeterministicRow(catalog.FamilyGlobal, t1, t1, "gfs/06/f000", nil))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.Header.Set(apiKeyHeader, "key-1")
	w := httptest.NewRecorder()
	h.srv.authenticated(h.srv.handleStatus()).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp v1.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var gfs *v1.FamilyCoverage
	for i := range resp.Families {
		if resp.Families[i].Family == string(catalog.FamilyGlobal) {
			gfs = &resp.Families[i]
		}
	}
	require.NotNil(t, gfs, "status response must include the global family")
	require.NotNil(t, gfs.MinCycle)
	require.NotNil(t, gfs.MaxCycle)
	assert.True(t, gfs.MinCycle.Equal(t0))
	assert.True(t, gfs.MaxCycle.Equal(t1))
}
