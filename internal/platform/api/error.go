package api

import (
	"net/http"
)

// Error codes carried in the envelope's "code" field.
const (
	CodeInvalidID       = "INVALID_ID"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeEmptyText       = "EMPTY_TEXT"
	CodeInvalidParent   = "INVALID_PARENT"
	CodeInvalidReaction = "INVALID_REACTION"
	CodeInvalidScope    = "INVALID_SCOPE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeNotReady        = "NOT_READY"
	CodeInternal        = "INTERNAL"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]any) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, Details: details, RequestID: requestID}})
}

func BadRequest(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusBadRequest, code, message, requestID, details)
}

// Unauthorized answers a request that reached a handler without a caller id.
func Unauthorized(w http.ResponseWriter, requestID string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required", requestID, nil)
}

func NotFound(w http.ResponseWriter, message, requestID string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message, requestID, nil)
}

func ServiceUnavailable(w http.ResponseWriter, message, requestID string) {
	WriteError(w, http.StatusServiceUnavailable, CodeNotReady, message, requestID, nil)
}

// Internal hides the cause; callers log it first.
func Internal(w http.ResponseWriter, requestID string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error", requestID, nil)
}
