package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig(t *testing.T) AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "fiiportal",
		JWTSecret:        strings.Repeat("k", minJWTSecret),
		AdminTokenTTL:    time.Hour,
		AdminEmails:      "admin@example.com",
		SessionKey:       strings.Repeat("s", 32),
		BaseURL:          "http://localhost:3000",
		SiteName:         "FII Portal",
		StorageType:      "local",
		StorageLocalPath: t.TempDir(),
		StorageLocalURL:  "/files/reports",
		MailQueueSize:    8,
		AuditLogAuth:     "all",
		AuditLogAdmin:    "db",
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "bad mongo uri", mutate: func(c *AppConfig) { c.MongoURI = "localhost:27017" }, wantErr: "invalid MongoDB URI"},
		{name: "no database", mutate: func(c *AppConfig) { c.MongoDatabase = "" }, wantErr: "mongo_database"},
		{name: "short jwt secret", mutate: func(c *AppConfig) { c.JWTSecret = "short" }, wantErr: "jwt_secret"},
		{name: "zero token ttl", mutate: func(c *AppConfig) { c.AdminTokenTTL = 0 }, wantErr: "admin_token_ttl"},
		{name: "unknown storage", mutate: func(c *AppConfig) { c.StorageType = "ftp" }, wantErr: "unknown storage_type"},
		{name: "s3 without bucket", mutate: func(c *AppConfig) {
			c.StorageType = "s3"
			c.StorageS3Endpoint = "localhost:9000"
		}, wantErr: "storage_s3_bucket"},
		{name: "s3 complete", mutate: func(c *AppConfig) {
			c.StorageType = "s3"
			c.StorageS3Endpoint = "localhost:9000"
			c.StorageS3Bucket = "reports"
		}},
		{name: "bad trusted proxy", mutate: func(c *AppConfig) { c.TrustedProxies = "10.0.0.0/8, proxy.local" }, wantErr: "trusted_proxies"},
		{name: "trusted proxies", mutate: func(c *AppConfig) { c.TrustedProxies = "10.0.0.0/8, 127.0.0.1" }},
		{name: "s3 on aws", mutate: func(c *AppConfig) {
			c.StorageType = "s3"
			c.StorageS3Bucket = "reports"
		}},
		{name: "bad audit destination", mutate: func(c *AppConfig) { c.AuditLogAdmin = "file" }, wantErr: "audit_log_admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig(t)
			tt.mutate(&cfg)
			err := ValidateConfig(core, cfg, testLogger())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com, ,https://b.example.com,")
	want := []string{"https://a.example.com", "https://b.example.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitList mismatch (-want +got):\n%s", diff)
	}
	if splitList("") != nil {
		t.Error("expected nil for an empty list")
	}
}

func TestNewFileStore(t *testing.T) {
	cfg := validAppConfig(t)
	store, err := newFileStore(context.Background(), cfg)
	require.NoError(t, err)
	_, ok := store.(*storage.Local)
	assert.True(t, ok, "expected a local store, got %T", store)

	cfg.StorageType = "ftp"
	_, err = newFileStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	svc = nil
	_, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validAppConfig(t), DBDeps{}, testLogger())
	assert.ErrorIs(t, err, errNotStarted)
}

func TestLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core := &config.CoreConfig{Env: "dev"}
	cfg := validAppConfig(t)
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	require.NoError(t, EnsureSchema(ctx, core, cfg, deps, testLogger()))
	require.NoError(t, EnsureSchema(ctx, core, cfg, deps, testLogger()), "schema setup must be idempotent")
	require.NoError(t, Startup(ctx, core, cfg, deps, testLogger()))

	handler, err := BuildHandler(core, cfg, deps, testLogger())
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK, wantBody: `"connected"`},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK, wantBody: "fiiportal_http_requests_total"},
		{name: "anonymous me", method: http.MethodGet, target: "/api/me", wantStatus: http.StatusOK, wantBody: `"authenticated":false`},
		{name: "public videos", method: http.MethodGet, target: "/api/videos", wantStatus: http.StatusOK},
		{name: "admin api is guarded", method: http.MethodGet, target: "/api/admin/videos", wantStatus: http.StatusUnauthorized},
		{name: "audit is guarded", method: http.MethodGet, target: "/api/admin/audit", wantStatus: http.StatusUnauthorized},
		{name: "admin page redirects", method: http.MethodGet, target: "/admin/videos", wantStatus: http.StatusSeeOther},
		{name: "login hint is public", method: http.MethodGet, target: "/admin/login", wantStatus: http.StatusOK, wantBody: "/api/admin/login"},
		{name: "admin me is public", method: http.MethodGet, target: "/api/admin/me", wantStatus: http.StatusUnauthorized},
		{name: "notifications need a member", method: http.MethodGet, target: "/api/notifications", wantStatus: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, target: "/api/nope", wantStatus: http.StatusNotFound, wantBody: `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, "body: %s", rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}

	assert.NotEmpty(t, rec(handler, "/api/videos").Header().Get("X-Request-Id"))

	// The shared test client stays connected for other tests.
	require.NoError(t, Shutdown(ctx, core, cfg, DBDeps{MongoDatabase: db}, testLogger()))
	assert.Nil(t, svc)
}

func rec(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}
