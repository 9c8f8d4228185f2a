package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, "a@fii.com", "password")
	logger.Logout(ctx, req, "a@fii.com")
	logger.Admin(ctx, req, "a@fii.com", audit.EventCreated, "video", "1", "x")
}

func TestLogger_LogOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// nil store: "log" must never touch it
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.Log, Admin: auditlog.Off})
	req := httptest.NewRequest("POST", "/api/admin/login", nil)
	req.RemoteAddr = "203.0.113.9:5000"

	logger.LoginFailed(ctx, req, "x@fii.com", audit.EventLoginFailedWrongPassword, "bad password")
	logger.Admin(ctx, req, "a@fii.com", audit.EventDeleted, "video", "1", "")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("failed login should log at warn, got %v", e.Level)
	}
	fields := e.ContextMap()
	if fields["event_type"] != audit.EventLoginFailedWrongPassword {
		t.Errorf("event_type: got %v", fields["event_type"])
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip: got %v", fields["ip"])
	}
}

func TestLogger_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.Off, Admin: auditlog.DB})
	req := httptest.NewRequest("DELETE", "/api/admin/videos/1", nil)

	logger.LoginSuccess(ctx, req, "a@fii.com", "password")
	logger.Admin(ctx, req, "a@fii.com", audit.EventDeleted, "video", "abc", "Título")

	page, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("got %d events, want 1", len(page.Items))
	}
	got := page.Items[0]
	if got.Category != audit.CategoryAdmin || got.Details["resource"] != "video" || got.Details["title"] != "Título" {
		t.Errorf("unexpected event: %+v", got)
	}
}
