// internal/app/features/adminauth/google.go
package adminauth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

var errNoState = errors.New("oauth state missing")

func (h *Handler) loginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, auth.AdminLoginPath+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}

func generateState() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("generate oauth state: no entropy")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/auth/google                                                   |
| Stores a state and return URL in the signed cookie, then redirects to Google.|
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogle(w http.ResponseWriter, r *http.Request) {
	if !h.GoogleEnabled() {
		h.Log.Warn("Google OAuth not configured")
		h.loginError(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.loginError(w, r, "internal")
		return
	}

	// A stale or tampered cookie yields a fresh session, which is fine here.
	sess, _ := h.States.New(r, stateSession)
	sess.Values["state"] = state
	sess.Values["return"] = auth.SafeReturnURL(query.Get(r, "return"), "/admin")
	if err := sess.Save(r, w); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.loginError(w, r, "internal")
		return
	}

	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// takeState reads and clears the state cookie.
func (h *Handler) takeState(w http.ResponseWriter, r *http.Request) (state, returnURL string, err error) {
	sess, err := h.States.Get(r, stateSession)
	if err != nil {
		return "", "", err
	}
	state, _ = sess.Values["state"].(string)
	returnURL, _ = sess.Values["return"].(string)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		h.Log.Warn("failed to clear OAuth state cookie", zap.Error(err))
	}
	if state == "" {
		return "", "", errNoState
	}
	return state, returnURL, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/auth/google/callback                                          |
| Validates state, exchanges the code, requires an allowlisted verified email, |
| provisions the admin record on first sign-in and sets the admin cookie.      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.GoogleEnabled() {
		h.loginError(w, r, "google_not_configured")
		return
	}
	ctx := r.Context()

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.loginError(w, r, "google_denied")
		return
	}

	want, returnURL, err := h.takeState(w, r)
	got := query.Get(r, "state")
	if err != nil || got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		h.Log.Warn("invalid or expired OAuth state", zap.Error(err))
		h.loginError(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.loginError(w, r, "invalid_code")
		return
	}

	exCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	token, err := h.OAuth.Exchange(exCtx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.loginError(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(exCtx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.loginError(w, r, "user_info")
		return
	}

	if !info.EmailVerified || !h.Allowlist.Allowed(info.Email) {
		h.Audit.LoginFailed(ctx, r, info.Email, audit.EventLoginFailedNotAllowed, "google email not allowlisted or unverified")
		h.loginError(w, r, "not_allowed")
		return
	}

	dbCtx, cancelDB := context.WithTimeout(ctx, timeouts.Short())
	defer cancelDB()

	a, created, err := h.Admins.EnsureGoogleAdmin(dbCtx, info.Email, info.Name)
	if err != nil {
		h.Log.Error("failed to provision admin", zap.Error(err), zap.String("email", info.Email))
		h.loginError(w, r, "internal")
		return
	}
	if created {
		h.Log.Info("admin provisioned from Google sign-in", zap.String("email", a.Email))
	}
	if a.Status == models.AdminDisabled {
		h.Audit.LoginFailed(ctx, r, a.Email, audit.EventLoginFailedDisabled, "account disabled")
		h.loginError(w, r, "account_disabled")
		return
	}

	if err := h.signIn(w, r, a, "google"); err != nil {
		h.Log.Error("failed to issue admin token", zap.Error(err))
		h.loginError(w, r, "internal")
		return
	}
	http.Redirect(w, r, auth.SafeReturnURL(returnURL, "/admin"), http.StatusSeeOther)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}
