package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// AdminLoginPath is where unauthenticated admin page requests are sent.
const AdminLoginPath = "/admin/login"

// AdminDirectory answers whether an admin account may still use the
// backend. A signed token outlives a `fiictl admin disable`, so every
// request carrying one is checked against it.
type AdminDirectory interface {
	IsActive(ctx context.Context, email string) (bool, error)
}

// Manager loads identities into the request context and guards routes.
type Manager struct {
	Tokens    *AdminTokens
	Clerk     *ClerkVerifier // nil disables member sign-in
	Allowlist Allowlist
	Directory AdminDirectory // nil skips the account status check
	Cookie    CookieOptions
	Log       *zap.Logger
}

// NewManager bundles the admin token service, Clerk verifier and allowlist.
func NewManager(tokens *AdminTokens, clerk *ClerkVerifier, allow Allowlist, cookie CookieOptions, logger *zap.Logger) *Manager {
	return &Manager{
		Tokens:    tokens,
		Clerk:     clerk,
		Allowlist: allow,
		Cookie:    cookie,
		Log:       logger,
	}
}

// LoadIdentity puts the Admin and/or Member into context when their tokens
// are valid. It never rejects a request.
func (m *Manager) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if c, err := r.Cookie(AdminCookie); err == nil && c.Value != "" {
			a, err := m.Tokens.Parse(c.Value)
			switch {
			case err != nil:
				m.Log.Debug("admin token rejected", zap.Error(err), zap.String("path", r.URL.Path))
			case !m.Allowlist.Allowed(a.Email):
				m.Log.Info("admin token for email no longer allowlisted",
					zap.String("email", a.Email))
			case !m.accountActive(r, a.Email):
			default:
				ctx = ContextWithAdmin(ctx, a)
			}
		}

		if m.Clerk != nil {
			if tok := SessionToken(r); tok != "" {
				if mem, err := m.Clerk.Verify(tok); err == nil {
					ctx = ContextWithMember(ctx, mem)
				} else {
					m.Log.Debug("session token rejected", zap.Error(err), zap.String("path", r.URL.Path))
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accountActive fails closed: a lookup error drops the admin identity.
func (m *Manager) accountActive(r *http.Request, email string) bool {
	if m.Directory == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ok, err := m.Directory.IsActive(ctx, email)
	if err != nil {
		m.Log.Warn("admin status lookup failed", zap.Error(err), zap.String("email", email))
		return false
	}
	if !ok {
		m.Log.Info("admin token for disabled or removed account", zap.String("email", email))
	}
	return ok
}

// RequireMember rejects requests without a member with 401 JSON.
func (m *Manager) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentMember(r); !ok {
			respond.Unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without an admin: page requests are
// redirected to the admin login page, API callers get 401 JSON.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAdmin(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		m.denyAdmin(w, r)
	})
}

// AdminGuard is a route-matching middleware for the whole router: any path
// under one of the protected prefixes needs an admin, except the public
// paths (login and OAuth endpoints). Prefixes match on path segments, so
// "/admin" covers "/admin" and "/admin/videos" but not "/administrator".
func (m *Manager) AdminGuard(protected []string, public []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if !matchAny(p, protected) || matchAny(p, public) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := CurrentAdmin(r); ok {
				next.ServeHTTP(w, r)
				return
			}
			m.denyAdmin(w, r)
		})
	}
}

func (m *Manager) denyAdmin(w http.ResponseWriter, r *http.Request) {
	if isPageRequest(r) {
		http.Redirect(w, r, AdminLoginPath+"?return="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	respond.Unauthorized(w, r)
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPathPrefix(path, p) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// isPageRequest: a browser navigation to an /admin page (not the JSON API).
func isPageRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if hasPathPrefix(r.URL.Path, "/api") {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html") || hasPathPrefix(r.URL.Path, "/admin")
}

// SafeReturnURL accepts only local absolute paths ("/x", not "//x" or
// "http://..."), falling back to def.
func SafeReturnURL(raw, def string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return def
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return def
	}
	return raw
}
