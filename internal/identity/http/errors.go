package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/pkg/authsdk"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err as a failure envelope. Only the client-safe
// message leaves the process; the full chain is logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := slogx.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Debug("request rejected", slog.Int("status", status), slog.Any("error", err))
	}
	authsdk.NewAPIError(status, service.Message(err)).WriteError(w)
}
