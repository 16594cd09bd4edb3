// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/buildkey"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// handleCheck implements GET /check?request-id=...: reports a request
// row's current status and, once completed, its coverage message. A
// caller may only check a request made with their own api key.
func (s *Server) handleCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ac, ok := authFromContext(ctx)
		if !ok {
			writeError(w, r, fmt.Errorf("requestapi: handleCheck used without authenticated"))
			return
		}

		requestID := r.URL.Query().Get("request-id")
		if requestID == "" {
			writeError(w, r, apperror.New(apperror.Validation, fmt.Errorf("requestapi: missing request-id query parameter")))
			return
		}

		req, err := s.requests.Get(ctx, requestID)
		if err != nil {
			if err == requests.ErrNotFound {
				writeError(w, r, apperror.New(apperror.NotFound, err))
				return
			}
			writeError(w, r, fmt.Errorf("requestapi: looking up request: %w", err))
			return
		}
		if req.APIKey != ac.apiKey {
			writeError(w, r, apperror.New(apperror.Auth, fmt.Errorf("requestapi: request belongs to a different api key")))
			return
		}

		resp := v1.CheckResponse{
			RequestID: req.RequestID,
			Status:    v1.RequestStatus(req.Status),
			Try:       req.Try,
			StartDate: req.StartDate,
			LastDate:  req.LastDate,
			Message:   req.Message,
		}
		if req.Status == requests.StatusCompleted {
			resp.RequestURL = s.downloadURL(ctx, req)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// downloadURL presigns the completed request's output object. A presign
// failure degrades to an empty URL rather than failing the whole check
// — the caller can retry the check once storage recovers.
func (s *Server) downloadURL(ctx context.Context, req *requests.Request) string {
	url, err := s.env.Blobstore().Presign(ctx, buildkey.OutputKey(req.RequestID))
	if err != nil {
		return ""
	}
	return url
}
