// internal/app/features/adminauth/login.go
package adminauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	adminstore "github.com/dalemusser/fiiportal/internal/app/store/admins"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// loginFailed is the only message a rejected sign-in ever returns.
const loginFailed = "invalid email or password"

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// burnCompare runs one bcrypt comparison for requests that fail before a
// real hash is available, so every rejection takes comparable time.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fiiportal-placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminResponse struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// HandleLogin signs an admin in with email and password.
//
// Route: POST /api/admin/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := respond.DecodeJSON(w, r, &in, 4<<10); err != nil {
		h.ErrLog.LogBadRequest(w, r, "admin login: bad body", err, "invalid JSON body")
		return
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		respond.BadRequest(w, r, "email and password are required")
		return
	}

	ctx := r.Context()
	if ok, reason := h.Limiter.Check(r, email); !ok {
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedRateLimit, "rate limited")
		respond.TooManyRequests(w, r, reason)
		return
	}

	if !h.Allowlist.Allowed(email) {
		burnCompare(in.Password)
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedNotAllowed, "email not in allowlist")
		h.reject(w, r)
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	a, err := h.Admins.GetByEmail(dbCtx, email)
	if errors.Is(err, adminstore.ErrNotFound) || errors.Is(err, adminstore.ErrInvalidEmail) {
		burnCompare(in.Password)
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedUnknown, "no admin record")
		h.reject(w, r)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin login: lookup failed", err)
		return
	}
	if a.Status == models.AdminDisabled {
		burnCompare(in.Password)
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedDisabled, "account disabled")
		h.reject(w, r)
		return
	}
	if a.PasswordHash == "" {
		burnCompare(in.Password)
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedWrongPassword, "account has no password")
		h.reject(w, r)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(in.Password)); err != nil {
		h.Audit.LoginFailed(ctx, r, email, audit.EventLoginFailedWrongPassword, "wrong password")
		h.reject(w, r)
		return
	}

	if err := h.signIn(w, r, a, "password"); err != nil {
		h.ErrLog.LogServerError(w, r, "admin login: issue token failed", err)
		return
	}
	h.Limiter.ResetEmail(email)
	respond.OK(w, adminResponse{Email: a.Email, Name: a.Name})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthenticated, loginFailed)
}

// signIn issues the admin token cookie and records the login.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, a models.Admin, method string) error {
	token, err := h.Tokens.Issue(a.Email, a.Name)
	if err != nil {
		return err
	}
	auth.SetAdminCookie(w, token, h.Tokens.TTL(), h.Cookie)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if err := h.Admins.TouchLogin(ctx, a.ID); err != nil {
		h.Log.Warn("admin login: update last_login_at failed", zap.Error(err), zap.String("email", a.Email))
	}
	h.Audit.LoginSuccess(r.Context(), r, a.Email, method)
	h.Log.Info("admin signed in", zap.String("email", a.Email), zap.String("method", method))
	return nil
}

// HandleLogout clears the admin cookie.
//
// Route: POST /api/admin/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if a, ok := auth.CurrentAdmin(r); ok {
		h.Audit.Logout(r.Context(), r, a.Email)
	}
	auth.ClearAdminCookie(w, h.Cookie)
	respond.NoContent(w)
}

// ServeMe returns the signed-in admin.
//
// Route: GET /api/admin/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	a, ok := auth.CurrentAdmin(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	respond.OK(w, adminResponse{Email: a.Email, Name: a.Name})
}

type loginHint struct {
	LoginURL  string `json:"login_url"`
	GoogleURL string `json:"google_url,omitempty"`
	ReturnURL string `json:"return_url"`
	Error     string `json:"error,omitempty"`
}

// ServeLoginHint answers the admin login page URL with the endpoints the
// UI posts to. An already signed-in admin is sent to the return URL.
//
// Route: GET /admin/login
func (h *Handler) ServeLoginHint(w http.ResponseWriter, r *http.Request) {
	ret := auth.SafeReturnURL(query.Get(r, "return"), "/admin")
	if _, ok := auth.CurrentAdmin(r); ok {
		http.Redirect(w, r, ret, http.StatusSeeOther)
		return
	}
	hint := loginHint{
		LoginURL:  "/api/admin/login",
		ReturnURL: ret,
		Error:     query.Get(r, "error"),
	}
	if h.GoogleEnabled() {
		hint.GoogleURL = "/api/admin/auth/google?return=" + url.QueryEscape(ret)
	}
	respond.OK(w, hint)
}
