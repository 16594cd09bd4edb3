// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/bus"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/selection"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// maxBuildBodyBytes bounds how much of the request body handleBuild
// reads, so an oversized payload can't exhaust memory before decoding
// even begins.
const maxBuildBodyBytes = 1 << 20 // 1 MiB

// handleBuild implements POST /build: validate the request, debit
// credit, persist a queued row, and publish the build envelope. It
// never runs the Selection Engine against the catalog itself — that's
// the Build Worker's job at build time, when catalog freshness matters.
func (s *Server) handleBuild() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		ac, ok := authFromContext(ctx)
		if !ok {
			writeError(w, r, fmt.Errorf("requestapi: handleBuild used without authenticated"))
			return
		}

		var spec v1.RequestSpec
		body := io.LimitReader(r.Body, maxBuildBodyBytes+1)
		if err := json.NewDecoder(body).Decode(&spec); err != nil {
			writeError(w, r, apperror.New(apperror.Validation, fmt.Errorf("decoding request body: %w", err)))
			return
		}
		if err := s.validate.Struct(&spec); err != nil {
			writeError(w, r, apperror.New(apperror.Validation, err))
			return
		}
		selReq, err := toSelectionRequest(&spec)
		if err != nil {
			writeError(w, r, apperror.New(apperror.Validation, err))
			return
		}
		if err := selection.ValidateDomains(selReq.Domains, spec.Nowcast); err != nil {
			writeError(w, r, apperror.New(apperror.Validation, err))
			return
		}

		if spec.IdempotencyKey != "" {
			existing, err := s.requests.FindByIdempotencyKey(ctx, ac.apiKey, spec.IdempotencyKey)
			if err != nil {
				writeError(w, r, fmt.Errorf("requestapi: checking idempotency key: %w", err))
				return
			}
			if existing != nil {
				writeJSON(w, http.StatusOK, v1.BuildResponse{
					RequestID:  existing.RequestID,
					RequestURL: "/check?request-id=" + existing.RequestID,
				})
				return
			}
		}

		creditCost := len(spec.Domains)
		if !ac.auth.Unlimited {
			if ac.auth.Remaining < creditCost {
				writeError(w, r, apperror.New(apperror.CreditDenied, fmt.Errorf("requestapi: insufficient credit remaining")))
				return
			}
		}
		if err := s.env.Ledger().Debit(ctx, ac.apiKey, creditCost); err != nil {
			writeError(w, r, apperror.New(apperror.CreditDenied, err))
			return
		}

		requestID := uuid.New()
		specJSON, err := json.Marshal(&spec)
		if err != nil {
			writeError(w, r, fmt.Errorf("requestapi: marshaling request spec: %w", err))
			return
		}

		err = s.requests.Create(ctx, &requests.Request{
			RequestID:      requestID.String(),
			APIKey:         ac.apiKey,
			SourceIP:       r.RemoteAddr,
			CreditUsage:    creditCost,
			InputData:      specJSON,
			IdempotencyKey: spec.IdempotencyKey,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("requestapi: creating request row: %w", err))
			return
		}

		env := bus.Envelope{
			RequestID:   requestID,
			SpecJSON:    specJSON,
			APIKey:      ac.apiKey,
			SubmittedAt: time.Now().UTC(),
		}
		if err := s.env.Bus().Publish(ctx, env); err != nil {
			logger.Errorw("failed to publish build envelope, request row is queued but unscheduled", "request_id", requestID, "error", err)
			writeError(w, r, fmt.Errorf("requestapi: publishing build envelope: %w", err))
			return
		}

		writeJSON(w, http.StatusAccepted, v1.BuildResponse{
			RequestID:  requestID.String(),
			RequestURL: "/check?request-id=" + requestID.String(),
		})
	}
}
