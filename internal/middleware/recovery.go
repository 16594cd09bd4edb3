// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package middleware

import (
	"net/http"

	"github.com/thewaterinstitute/metget-server/internal/logging"
)

// Recovery converts a panicking handler into a 500 response instead of
// crashing the process. It must be the outermost middleware in the chain
// so it can catch panics from everything inside it, including the logger
// and request ID middleware.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.FromContext(r.Context()).Errorw("recovered from panic", "error", rec)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
