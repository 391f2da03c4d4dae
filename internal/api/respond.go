package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details, RequestID: GetRequestID(r.Context())})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// handleError maps service errors onto HTTP statuses. Unknown errors are logged and reported as 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "unauthorized", auth.ErrUnauthenticated.Error())
	case errors.Is(err, auth.ErrInvalidResetToken):
		writeError(w, r, http.StatusBadRequest, "invalid_reset_token", err.Error())
	case errors.Is(err, auth.ErrAccountDeactivated):
		writeError(w, r, http.StatusForbidden, "account_deactivated", err.Error())
	case errors.Is(err, auth.ErrForbiddenRole),
		errors.Is(err, auth.ErrForbiddenPermission),
		errors.Is(err, appointment.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "principal_not_found", err.Error())
	case errors.Is(err, specialty.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "specialty_not_found", err.Error())
	case errors.Is(err, specialty.ErrNameTaken):
		writeError(w, r, http.StatusConflict, "specialty_exists", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, r, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, identity.ErrEmailTaken), errors.Is(err, identity.ErrLicenseTaken):
		writeError(w, r, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, appointment.ErrPractitionerUnavailable):
		writeError(w, r, http.StatusUnprocessableEntity, "practitioner_unavailable", err.Error())
	case errors.Is(err, appointment.ErrValidation), errors.Is(err, identity.ErrValidation), errors.Is(err, specialty.ErrValidation):
		writeError(w, r, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
