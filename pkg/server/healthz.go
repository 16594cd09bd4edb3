// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"

	"golang.org/x/time/rate"
)

// pingLimiter limits when we actually ping the catalog database to at
// most 1/sec to prevent a DOS since this is an unauthenticated endpoint.
var pingLimiter = rate.NewLimiter(rate.Every(1*time.Second), 1)

// pinger is implemented by catalog.Store; checked via interface so this
// package never imports a database driver directly.
type pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealthz reports 200 once env's catalog responds to a ping,
// rate-limited so repeated health checks don't themselves become load.
func HandleHealthz(env *serverenv.ServerEnv) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logger := logging.FromContext(ctx).Named("server.HandleHealthz")

		if p, ok := env.Catalog().(pinger); ok && pingLimiter.Allow() {
			if err := p.Ping(ctx); err != nil {
				logger.Errorw("failed to ping catalog", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "ok"}`)
	})
}
