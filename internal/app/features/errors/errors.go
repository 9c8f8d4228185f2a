// internal/app/features/errors/errors.go
//
// Package errors logs handler failures and writes the JSON error envelope.
package errors

import (
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/system/requestlog"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"go.uber.org/zap"
)

// ErrorLogger is shared by every feature handler.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger wraps logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error, extra []zap.Field) []zap.Field {
	f := make([]zap.Field, 0, len(extra)+4)
	f = append(f,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	if rid := requestlog.ID(r.Context()); rid != "" {
		f = append(f, zap.String("request_id", rid))
	}
	return append(f, extra...)
}

// LogServerError logs err at error level and writes a generic 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, extra ...zap.Field) {
	e.log.Error(msg, e.fields(r, err, extra)...)
	respond.Internal(w, r)
}

// LogUpstreamError logs a failed third-party call and writes 502.
func (e *ErrorLogger) LogUpstreamError(w http.ResponseWriter, r *http.Request, msg string, err error, extra ...zap.Field) {
	e.log.Warn(msg, e.fields(r, err, extra)...)
	respond.Error(w, r, http.StatusBadGateway, respond.CodeUpstream, "market data provider unavailable")
}

// LogBadRequest logs a rejected request at debug level and writes 400 with
// userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Debug(msg, e.fields(r, err, nil)...)
	respond.BadRequest(w, r, userMsg)
}
