// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/credit"
)

// apiKeyHeader is the header clients present their MetGet-Server API
// key in.
const apiKeyHeader = "X-Api-Key"

type contextKey string

const authContextKey = contextKey("requestapi.auth")

// authContext is what authenticated stashes on the request context for
// downstream handlers.
type authContext struct {
	apiKey string
	auth   credit.Authorization
}

// authenticated resolves the caller's API key against the credit ledger
// before invoking next. A missing, unknown, disabled, or expired key is
// rejected with 401 before next ever runs.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(apiKeyHeader)
		if apiKey == "" {
			writeError(w, r, apperror.New(apperror.Auth, fmt.Errorf("requestapi: missing %s header", apiKeyHeader)))
			return
		}

		auth, err := s.env.Ledger().Authorize(r.Context(), apiKey)
		if err != nil {
			if err == credit.ErrUnknownKey {
				writeError(w, r, apperror.New(apperror.Auth, err))
				return
			}
			writeError(w, r, fmt.Errorf("requestapi: authorizing key: %w", err))
			return
		}
		if !auth.Enabled {
			writeError(w, r, apperror.New(apperror.Auth, fmt.Errorf("requestapi: api key is disabled or expired")))
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, authContext{apiKey: apiKey, auth: auth})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimited rejects a request with 429 once the caller's key has
// exceeded its per-minute budget. Sits inside authenticated so the rate
// limiter is keyed by the resolved API key, not by IP.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := r.Context().Value(authContextKey).(authContext)
		if !ok {
			writeError(w, r, fmt.Errorf("requestapi: rateLimited used without authenticated"))
			return
		}
		if !s.limiters.allow(ac.apiKey) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "rate_limited",
				"message": "rate limit exceeded for this api key",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authFromContext(ctx context.Context) (authContext, bool) {
	ac, ok := ctx.Value(authContextKey).(authContext)
	return ac, ok
}
