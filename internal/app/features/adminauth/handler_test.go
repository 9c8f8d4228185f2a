package adminauth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/features/adminauth"
	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const testSecret = "test-secret-0123456789abcdef-0123456789"

func newTokens(t *testing.T) *auth.AdminTokens {
	t.Helper()
	tokens, err := auth.NewAdminTokens(testSecret, time.Hour)
	require.NoError(t, err)
	return tokens
}

// newHandler builds a handler; db may be nil for tests that never reach
// the admins collection.
func newHandler(t *testing.T, db *mongo.Database, google adminauth.GoogleConfig) *adminauth.Handler {
	t.Helper()
	limiter := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 3, time.Minute)
	t.Cleanup(limiter.Stop)
	logger := zap.NewNop()
	if db == nil {
		h := &adminauth.Handler{
			Tokens:    newTokens(t),
			Allowlist: auth.ParseAllowlist("admin@test.com"),
			Limiter:   limiter,
			ErrLog:    errorsfeature.NewErrorLogger(logger),
			Log:       logger,
		}
		return h
	}
	return adminauth.NewHandler(db, newTokens(t), auth.ParseAllowlist("admin@test.com, google@test.com"),
		auth.CookieOptions{}, limiter, nil, errorsfeature.NewErrorLogger(logger), google, logger)
}

func login(t *testing.T, h *adminauth.Handler, email, password string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login", map[string]string{
		"email": email, "password": password,
	})
	h.HandleLogin(rec, req)
	return rec
}

func adminCookie(rec *testutil.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.AdminCookie {
			return c
		}
	}
	return nil
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})

	login(t, h, "", "pw").AssertStatus(t, http.StatusBadRequest)
	login(t, h, "admin@test.com", "").AssertStatus(t, http.StatusBadRequest)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/admin/login", "{not json"))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, respond.CodeBadRequest)
}

func TestLogin_NotAllowlisted(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})

	rec := login(t, h, "stranger@test.com", "whatever")
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "invalid email or password")
	assert.Nil(t, adminCookie(rec))
}

func TestLogin_RateLimitedPerEmail(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})

	for i := 0; i < 3; i++ {
		login(t, h, "stranger@test.com", "x").AssertStatus(t, http.StatusUnauthorized)
	}
	rec := login(t, h, "stranger@test.com", "x")
	rec.AssertStatus(t, http.StatusTooManyRequests)
	rec.AssertErrorCode(t, respond.CodeRateLimited)
}

func TestLogin_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateAdmin(ctx, "admin@test.com", "correct-horse")

	h := newHandler(t, db, adminauth.GoogleConfig{})
	rec := login(t, h, "Admin@Test.com", "correct-horse")
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Email string `json:"email"`
	}
	rec.DecodeJSON(t, &body)
	assert.Equal(t, "admin@test.com", body.Email)

	c := adminCookie(rec)
	require.NotNil(t, c, "admin cookie not set")
	assert.True(t, c.HttpOnly)
	a, err := h.Tokens.Parse(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "admin@test.com", a.Email)

	got, err := h.Admins.GetByEmail(ctx, "admin@test.com")
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestLogin_Failures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateAdmin(ctx, "admin@test.com", "correct-horse")

	h := newHandler(t, db, adminauth.GoogleConfig{})

	wrong := login(t, h, "admin@test.com", "nope")
	wrong.AssertStatus(t, http.StatusUnauthorized)

	unknown := login(t, h, "google@test.com", "nope")
	unknown.AssertStatus(t, http.StatusUnauthorized)

	var a, b respond.ErrorResponse
	require.NoError(t, json.Unmarshal(wrong.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(unknown.Body.Bytes(), &b))
	assert.Equal(t, a.Error.Message, b.Error.Message, "failures must be indistinguishable")

	require.NoError(t, h.Admins.SetStatus(ctx, "admin@test.com", "disabled"))
	login(t, h, "admin@test.com", "correct-horse").AssertStatus(t, http.StatusUnauthorized)
}

func TestServeMeAndLogout(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewRequest(http.MethodGet, "/api/admin/me"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	h.ServeMe(rec, testutil.AsAdmin(testutil.NewRequest(http.MethodGet, "/api/admin/me"), testutil.TestAdmin()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "admin@test.com")

	rec = testutil.NewRecorder()
	h.HandleLogout(rec, testutil.AsAdmin(testutil.NewRequest(http.MethodPost, "/api/admin/logout"), testutil.TestAdmin()))
	rec.AssertStatus(t, http.StatusNoContent)
	c := adminCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "", c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestServeLoginHint(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})

	rec := testutil.NewRecorder()
	h.ServeLoginHint(rec, testutil.NewRequest(http.MethodGet, "/admin/login?return=/admin/videos"))
	rec.AssertStatus(t, http.StatusOK)
	var hint struct {
		LoginURL  string `json:"login_url"`
		GoogleURL string `json:"google_url"`
		ReturnURL string `json:"return_url"`
	}
	rec.DecodeJSON(t, &hint)
	assert.Equal(t, "/api/admin/login", hint.LoginURL)
	assert.Equal(t, "/admin/videos", hint.ReturnURL)
	assert.Empty(t, hint.GoogleURL)

	rec = testutil.NewRecorder()
	h.ServeLoginHint(rec, testutil.NewRequest(http.MethodGet, "/admin/login?return=https://evil.test/"))
	hint.ReturnURL = ""
	rec.DecodeJSON(t, &hint)
	assert.Equal(t, "/admin", hint.ReturnURL)

	rec = testutil.NewRecorder()
	h.ServeLoginHint(rec, testutil.AsAdmin(testutil.NewRequest(http.MethodGet, "/admin/login?return=/admin/goals"), testutil.TestAdmin()))
	rec.AssertRedirect(t, "/admin/goals")
}

func TestServeGoogle_NotConfigured(t *testing.T) {
	h := newHandler(t, nil, adminauth.GoogleConfig{})
	rec := testutil.NewRecorder()
	h.ServeGoogle(rec, testutil.NewRequest(http.MethodGet, "/api/admin/auth/google"))
	rec.AssertRedirect(t, "/admin/login?error=google_not_configured")
}

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "g-1", "email": email, "verified_email": verified, "name": "Google Admin",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func googleHandler(t *testing.T, db *mongo.Database, srv *httptest.Server) *adminauth.Handler {
	h := newHandler(t, db, adminauth.GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      "http://portal.test",
		SessionKey:   "state-key-0123456789abcdef0123456789",
	})
	h.OAuth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	h.UserInfoURL = srv.URL + "/userinfo"
	return h
}

// startGoogle runs ServeGoogle and returns the state and the state cookie.
func startGoogle(t *testing.T, h *adminauth.Handler, ret string) (string, []*http.Cookie) {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeGoogle(rec, testutil.NewRequest(http.MethodGet, "/api/admin/auth/google?return="+url.QueryEscape(ret)))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "http://portal.test/api/admin/auth/google/callback", loc.Query().Get("redirect_uri"))
	return state, rec.Result().Cookies()
}

func callback(h *adminauth.Handler, state string, cookies []*http.Cookie) *testutil.ResponseRecorder {
	req := testutil.NewRequest(http.MethodGet, "/api/admin/auth/google/callback?code=abc&state="+url.QueryEscape(state))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := testutil.NewRecorder()
	h.ServeGoogleCallback(rec, req)
	return rec
}

func TestGoogleFlow_ProvisionsAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	srv := fakeGoogle(t, "google@test.com", true)
	h := googleHandler(t, db, srv)

	state, cookies := startGoogle(t, h, "/admin/reports")
	rec := callback(h, state, cookies)
	rec.AssertRedirect(t, "/admin/reports")
	require.NotNil(t, adminCookie(rec))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	a, err := h.Admins.GetByEmail(ctx, "google@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Google Admin", a.Name)
	assert.Empty(t, a.PasswordHash)
}

func TestGoogleFlow_StateMismatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	srv := fakeGoogle(t, "google@test.com", true)
	h := googleHandler(t, db, srv)

	_, cookies := startGoogle(t, h, "/admin")
	rec := callback(h, "forged", cookies)
	rec.AssertRedirect(t, "/admin/login?error=invalid_state")

	rec = callback(h, "forged", nil)
	rec.AssertRedirect(t, "/admin/login?error=invalid_state")
}

func TestGoogleFlow_RejectsNonAllowlisted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	srv := fakeGoogle(t, "stranger@test.com", true)
	h := googleHandler(t, db, srv)

	state, cookies := startGoogle(t, h, "/admin")
	rec := callback(h, state, cookies)
	rec.AssertRedirect(t, "/admin/login?error=not_allowed")
	assert.Nil(t, adminCookie(rec))
	assert.False(t, strings.Contains(rec.Header().Get("Location"), "stranger"))
}
