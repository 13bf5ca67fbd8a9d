package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"coworkd/internal/auth"
	"coworkd/internal/booking"
	"coworkd/internal/database"
	"coworkd/internal/service"

	"github.com/rs/zerolog"
)

// envelope is the response shape for every endpoint: {success, data} on
// success, {success, message} on failure.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

// writeError maps domain errors onto HTTP statuses. Anything unmapped is a
// server fault: logged in full, reported generically.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Str("method", r.Method).Msg("request failed")
		message = "internal server error"
	}
	writeMessage(w, status, message)
}

func errorStatus(err error) (int, string) {
	var validationErr *service.ValidationError
	var hoursErr *booking.OutOfHoursError
	var quotaErr *booking.QuotaExceededError
	var conflictErr *booking.ConflictError

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &hoursErr),
		errors.As(err, &quotaErr),
		errors.As(err, &conflictErr),
		errors.Is(err, booking.ErrInvalidInterval),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, booking.ErrSpaceNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, booking.ErrForbidden),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, ""
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &service.ValidationError{Msg: "invalid request body"}
	}
	return nil
}
