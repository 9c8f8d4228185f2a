// internal/app/features/adminauth/handler.go
package adminauth

import (
	"net/http"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	adminstore "github.com/dalemusser/fiiportal/internal/app/store/admins"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the userinfo endpoint queried after the code exchange.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// stateSession is the cookie that carries the OAuth state and return URL.
const stateSession = "fiiportal_oauth"

// GoogleConfig enables Google sign-in when ClientID and ClientSecret are set.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // callback is BaseURL + /api/admin/auth/google/callback
	SessionKey   string // signs the state cookie
	Secure       bool
}

// Handler serves admin sign-in and sign-out.
type Handler struct {
	Admins    *adminstore.Store
	Tokens    *auth.AdminTokens
	Allowlist auth.Allowlist
	Cookie    auth.CookieOptions
	Limiter   *ratelimit.LoginLimiter
	Audit     *auditlog.Logger
	ErrLog    *errorsfeature.ErrorLogger
	Log       *zap.Logger

	OAuth       *oauth2.Config // nil when Google sign-in is off
	UserInfoURL string
	States      sessions.Store
}

// NewHandler builds the handler. Google sign-in stays disabled unless
// google has both client credentials.
func NewHandler(
	db *mongo.Database,
	tokens *auth.AdminTokens,
	allow auth.Allowlist,
	cookie auth.CookieOptions,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	errLog *errorsfeature.ErrorLogger,
	google GoogleConfig,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		Admins:      adminstore.New(db),
		Tokens:      tokens,
		Allowlist:   allow,
		Cookie:      cookie,
		Limiter:     limiter,
		Audit:       audit,
		ErrLog:      errLog,
		Log:         logger,
		UserInfoURL: GoogleUserInfoURL,
	}
	if google.ClientID != "" && google.ClientSecret != "" {
		h.OAuth = googleOAuthConfig(google)
		h.States = newStateStore(google.SessionKey, google.Secure)
	}
	return h
}

func googleOAuthConfig(g GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.BaseURL + "/api/admin/auth/google/callback",
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func newStateStore(key string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/api/admin/auth",
		MaxAge:   int(stateTTL.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// GoogleEnabled reports whether Google sign-in is configured.
func (h *Handler) GoogleEnabled() bool { return h.OAuth != nil && h.States != nil }
