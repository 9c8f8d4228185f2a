// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/system/requestlog"
)

// Error codes used in the JSON error envelope.
const (
	CodeBadRequest      = "invalid_argument"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "permission_denied"
	CodeNotFound        = "not_found"
	CodeConflict        = "already_exists"
	CodeTooLarge        = "too_large"
	CodeRateLimited     = "rate_limited"
	CodeUpstream        = "upstream_error"
	CodeInternal        = "internal"
)

// APIError is the body of every error response.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps APIError as {"error": {...}}.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// NoContent writes 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Error writes the error envelope. The request ID is taken from the request
// context (set by requestlog.RequestID) or the incoming header.
func Error(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	rid := requestlog.ID(r.Context())
	if rid == "" {
		rid = r.Header.Get(requestlog.Header)
	}
	JSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: msg, RequestID: rid}})
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusBadRequest, CodeBadRequest, msg)
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
}

func Forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusForbidden, CodeForbidden, msg)
}

func NotFound(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusNotFound, CodeNotFound, msg)
}

func Conflict(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusConflict, CodeConflict, msg)
}

func TooManyRequests(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusTooManyRequests, CodeRateLimited, msg)
}

// Internal writes a generic 500. Callers log the cause themselves.
func Internal(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields and bodies
// larger than maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
