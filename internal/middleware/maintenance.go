// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package middleware

import "net/http"

// MaintenanceConfig is satisfied by any config carrying a maintenance
// flag, so this package doesn't import internal/config directly.
type MaintenanceConfig interface {
	MaintenanceMode() bool
}

// ProcessMaintenance rejects every request with 429 while cfg reports
// maintenance mode enabled, and passes through otherwise. It sits
// outside the rate limiter in the Request API's chain so an operator can
// drain traffic without api keys burning their rate budget on responses
// they can't use.
func ProcessMaintenance(cfg MaintenanceConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.MaintenanceMode() {
				http.Error(w, "service is in maintenance mode", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
