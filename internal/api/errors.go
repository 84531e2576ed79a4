package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/settings"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeUnavailable writes a 503 error response for optional features
// that are not configured.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// notFoundErrors are reported as 404.
var notFoundErrors = []error{
	device.ErrDeviceNotFound,
	device.ErrUserNodeNotFound,
	settings.ErrKeyNotFound,
}

// conflictErrors are reported as 409.
var conflictErrors = []error{
	device.ErrDeviceExists,
	device.ErrUserNodeExists,
}

// validationErrors are reported as 400 with the error text.
var validationErrors = []error{
	device.ErrInvalidDevice,
	device.ErrInvalidName,
	device.ErrReservedName,
	device.ErrInvalidDeviceType,
	device.ErrInvalidAddress,
	device.ErrInvalidUserNode,
	settings.ErrInvalidValue,
	settings.ErrTypeMismatch,
	settings.ErrUnknownValueType,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// isValidationError reports whether err is caused by bad client input.
func isValidationError(err error) bool {
	return isAny(err, validationErrors)
}

// writeDomainError maps a domain error to a response. Anything not
// recognised is logged and reported as a 500 with fallback as message.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case isAny(err, notFoundErrors):
		writeNotFound(w, err.Error())
	case isAny(err, conflictErrors):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}
