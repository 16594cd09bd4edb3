// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/credit"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

func validSpec() v1.RequestSpec {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	return v1.RequestSpec{
		StartDate: start,
		EndDate:   start.Add(6 * time.Hour),
		TimeStep:  3600,
		Format:    v1.FormatOWIASCII,
		EPSG:      4326,
		Filename:  "storm.owi",
		Domains: []v1.Domain{
			{Service: "gfs", Level: 0},
		},
	}
}

func doBuild(t *testing.T, h *testHarness, apiKey string, spec v1.RequestSpec) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(spec)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/build", bytes.NewReader(body))
	if apiKey != "" {
		r.Header.Set(apiKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()

	handler := h.srv.authenticated(h.srv.rateLimited(h.srv.handleBuild()))
	handler.ServeHTTP(w, r)
	return w
}

func TestHandleBuild_Success(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	w := doBuild(t, h, "key-1", validSpec())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp v1.BuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)

	req, err := h.reqs.Get(context.Background(), resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "key-1", req.APIKey)
}

func TestHandleBuild_MissingAPIKey(t *testing.T) {
	h := newTestHarness(t)
	w := doBuild(t, h, "", validSpec())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleBuild_UnknownAPIKey(t *testing.T) {
	h := newTestHarness(t)
	w := doBuild(t, h, "nope", validSpec())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleBuild_ValidationErrorOnEmptyDomains(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	spec := validSpec()
	spec.Domains = nil
	w := doBuild(t, h, "key-1", spec)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBuild_UnknownServiceFailsFast(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	spec := validSpec()
	spec.Domains = []v1.Domain{{Service: "not-a-real-service", Level: 0}}
	w := doBuild(t, h, "key-1", spec)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBuild_InsufficientCreditIsDenied(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 0})

	w := doBuild(t, h, "key-1", validSpec())
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestHandleBuild_IdempotencyKeyDedupesRetry(t *testing.T) {
	h := newTestHarness(t)
	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	spec := validSpec()
	spec.IdempotencyKey = "retry-123"

	first := doBuild(t, h, "key-1", spec)
	require.Equal(t, http.StatusAccepted, first.Code)
	var firstResp v1.BuildResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

	second := doBuild(t, h, "key-1", spec)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	var secondResp v1.BuildResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))

	assert.Equal(t, firstResp.RequestID, secondResp.RequestID)

	auth, err := h.ledger.Authorize(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, 9, auth.Remaining, "the deduped retry must not debit credit a second time")
}

func TestHandleBuild_RateLimitExceeded(t *testing.T) {
	h := newTestHarness(t)
	h.cfg.RateLimitPerMinute = 1
	limiters, err := newKeyLimiters(h.cfg.RateLimitPerMinute)
	require.NoError(t, err)
	h.srv.limiters = limiters

	h.ledger.Put("key-1", credit.MemoryKey{Enabled: true, Limit: 10, Remaining: 10})

	first := doBuild(t, h, "key-1", validSpec())
	require.Equal(t, http.StatusAccepted, first.Code)

	second := doBuild(t, h, "key-1", validSpec())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
