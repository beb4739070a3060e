package handler

// RESPONSE HELPERS:
// Every error body has the same shape so clients can branch on the code:
//   {"error": "passwordUnmatch", "message": "password does not match"}
//
// Faults (apperror.ErrInternal, storage failures, anything untyped) are
// logged here with the real error and answered with a generic 500; their
// text never reaches the client.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/momo-server/internal/apperror"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Error   apperror.Code `json:"error"`
	Message string        `json:"message,omitempty"`
	Field   string        `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error's sentinel to an HTTP status. ok is false for
// faults.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, apperror.ErrInternal):
		return http.StatusInternalServerError, false
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, true
	}
	return http.StatusInternalServerError, false
}

// writeError maps a domain error to its HTTP status and sends it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, ok := statusFor(err)
	if !ok {
		writeFault(w, r, logger, err)
		return
	}
	writeJSON(w, status, errorBody(err))
}

// writeAuthError is writeError for the /auth endpoints, which answer every
// expected failure with 400 and let the code tell them apart.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if _, ok := statusFor(err); !ok {
		writeFault(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusBadRequest, errorBody(err))
}

func writeFault(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request fault",
		slog.String("requestID", chimw.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   apperror.CodeInternal,
		Message: "an internal error occurred",
	})
}

func errorBody(err error) ErrorResponse {
	body := ErrorResponse{Error: apperror.CodeOf(err), Message: err.Error()}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Field = appErr.Field
	}
	return body
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
