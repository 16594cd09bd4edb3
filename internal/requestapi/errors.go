// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"encoding/json"
	"net/http"

	"github.com/thewaterinstitute/metget-server/internal/apperror"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// statusFor maps an apperror.Kind to the HTTP status the Request API
// reports it as.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.Validation:
		return http.StatusBadRequest
	case apperror.Auth:
		return http.StatusUnauthorized
	case apperror.CreditDenied:
		return http.StatusPaymentRequired
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.UpstreamUnavailable:
		return http.StatusBadGateway
	case apperror.CoverageGap:
		return http.StatusUnprocessableEntity
	case apperror.IntegrityConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err via apperror.Of and writes the matching
// status and an ErrorResponse body. Internal-kind errors are logged with
// full detail but never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.Of(err)
	status := statusFor(kind)

	msg := err.Error()
	if kind == apperror.Unknown || status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Errorw("request failed", "error", err)
		msg = "an internal error occurred"
	}

	writeJSON(w, status, v1.ErrorResponse{
		Error:   kind.String(),
		Message: msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
