// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config picks a destination per category.
type Config struct {
	Auth  string
	Admin string
}

// Logger records audit events to the audit store and/or zap.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorEmail != "" {
		fields = append(fields, zap.String("actor", event.ActorEmail))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event according to its category's destination. Unknown
// categories go everywhere.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := All
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request, category, eventType, actor string) audit.Event {
	e := audit.Event{Category: category, EventType: eventType, ActorEmail: actor}
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a successful admin sign-in. method is "password" or "google".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, email, method string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess, email)
	e.Success = true
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// LoginFailed logs a rejected sign-in with the internal reason. The client
// only ever sees a generic message.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, eventType, reason string) {
	e := fromRequest(r, audit.CategoryAuth, eventType, email)
	e.FailureReason = reason
	l.Log(ctx, e)
}

// Logout logs an admin sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout, email)
	e.Success = true
	l.Log(ctx, e)
}

// --- Admin Events ---

// Admin logs a backend action by actor on one resource.
func (l *Logger) Admin(ctx context.Context, r *http.Request, actor, eventType, resource, id, title string) {
	e := fromRequest(r, audit.CategoryAdmin, eventType, actor)
	e.Success = true
	e.Details = map[string]string{"resource": resource, "id": id}
	if title != "" {
		e.Details["title"] = title
	}
	l.Log(ctx, e)
}
