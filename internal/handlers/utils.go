package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/setlive/backend/internal/logging"
	"github.com/setlive/backend/internal/models"
	"github.com/setlive/backend/internal/session"
)

// writeJSON serializes data as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a simple client error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// writeErrorWithCause writes an error response and logs the error with a
// stack trace. Use for server errors where there is an underlying cause.
func writeErrorWithCause(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	writeError(w, status, message)

	// 401/403 are already covered by security event logging
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return
	}

	if status >= 400 && err != nil {
		wrappedErr := logging.WrapError(err, message)
		logging.LogErrorWithStatus(ctx, status, "error response", wrappedErr)
	}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Every engine rejection happens before mutation, so these are all safe to
// retry after the client resynchronizes.
func writeEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrForbidden):
		logging.LogSecurityEvent(ctx, logging.SecurityEventNonDJAccess, "dj-only operation rejected")
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrQuotaExceeded),
		errors.Is(err, session.ErrRequestsDisabled),
		errors.Is(err, session.ErrVotingDisabled),
		errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}
