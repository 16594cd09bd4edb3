// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/credit"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

func doCheck(t *testing.T, h *testHarness, apiKey, requestID string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/check?request-id="+requestID, nil)
	if apiKey != "" {
		r.Header.Set(apiKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()
	h.srv.authenticated(h.srv.handleCheck()).ServeHTTP(w, r)
	return w
}

func TestHandleCheck_ReturnsCurrentStatus(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	require.NoError(t, h.reqs.Create(context.Background(), &requests.Request{
		RequestID: "req-1",
		APIKey:    "key-1",
	}))

	w := doCheck(t, h, "key-1", "req-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp v1.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, v1.RequestStatus(requests.StatusQueued), resp.Status)
}

func TestHandleCheck_NotFound(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	w := doCheck(t, h, "key-1", "does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCheck_RejectsOtherKeysRequest(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})
	h.ledger.Put("key-2", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	require.NoError(t, h.reqs.Create(context.Background(), &requests.Request{
		RequestID: "req-1",
		APIKey:    "key-1",
	}))

	w := doCheck(t, h, "key-2", "req-1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
