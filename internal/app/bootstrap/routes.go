// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	adminauthfeature "github.com/dalemusser/fiiportal/internal/app/features/adminauth"
	auditlogfeature "github.com/dalemusser/fiiportal/internal/app/features/auditlog"
	commentsfeature "github.com/dalemusser/fiiportal/internal/app/features/comments"
	datasetsfeature "github.com/dalemusser/fiiportal/internal/app/features/datasets"
	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	goalsfeature "github.com/dalemusser/fiiportal/internal/app/features/goals"
	healthfeature "github.com/dalemusser/fiiportal/internal/app/features/health"
	marketfeature "github.com/dalemusser/fiiportal/internal/app/features/market"
	notificationsfeature "github.com/dalemusser/fiiportal/internal/app/features/notifications"
	reportsfeature "github.com/dalemusser/fiiportal/internal/app/features/reports"
	subscriptionsfeature "github.com/dalemusser/fiiportal/internal/app/features/subscriptions"
	userinfofeature "github.com/dalemusser/fiiportal/internal/app/features/userinfo"
	videosfeature "github.com/dalemusser/fiiportal/internal/app/features/videos"
	adminstore "github.com/dalemusser/fiiportal/internal/app/store/admins"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/app/system/requestlog"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// adminPrefixes are guarded by Manager.AdminGuard.
var adminPrefixes = []string{"/admin", "/api/admin"}

// BuildHandler constructs the root router.
//
// When trusted_proxies is set, RealIP first replaces RemoteAddr with the
// forwarded client address for requests arriving through those proxies.
// Every request gets a request ID, an access log line and metrics, then
// LoadIdentity attaches the admin (admin_token cookie) and the member
// (Clerk session) when present. Everything under /admin and /api/admin
// requires an admin except the sign-in endpoints.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errNotStarted
	}
	secure := coreCfg.Env == "prod"

	tokens, err := auth.NewAdminTokens(appCfg.JWTSecret, appCfg.AdminTokenTTL)
	if err != nil {
		logger.Error("admin token init failed", zap.Error(err))
		return nil, err
	}
	clerk, err := auth.NewClerkVerifier(auth.ClerkConfig{
		PublicKeyPEM:      appCfg.ClerkJWTKey,
		Issuer:            appCfg.ClerkIssuer,
		AuthorizedParties: splitList(appCfg.ClerkAuthorizedParties),
	})
	if err != nil {
		logger.Error("clerk verifier init failed", zap.Error(err))
		return nil, err
	}
	allow := auth.ParseAllowlist(appCfg.AdminEmails)
	cookie := auth.CookieOptions{Domain: appCfg.AdminCookieDomain, Secure: secure}
	authMgr := auth.NewManager(tokens, clerk, allow, cookie, logger)

	proxies, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies)
	if err != nil {
		logger.Error("trusted proxies init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)
	authMgr.Directory = adminstore.New(db)

	r := chi.NewRouter()
	if proxies.Len() > 0 {
		r.Use(ratelimit.RealIP(proxies))
	}
	r.Use(requestlog.RequestID)
	r.Use(requestlog.AccessLog(logger))
	r.Use(svc.metrics.Middleware)
	r.Use(authMgr.LoadIdentity)
	r.Use(authMgr.AdminGuard(adminPrefixes, adminauthfeature.PublicPaths))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.NotFound(w, r, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	// Health and metrics for load balancers and scrapers
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.metrics.Handler())

	// Admin sign-in
	adminAuthHandler := adminauthfeature.NewHandler(db, tokens, allow, cookie, svc.logins, svc.audit, errLog,
		adminauthfeature.GoogleConfig{
			ClientID:     appCfg.GoogleClientID,
			ClientSecret: appCfg.GoogleClientSecret,
			BaseURL:      appCfg.BaseURL,
			SessionKey:   appCfg.SessionKey,
			Secure:       secure,
		}, logger)
	r.Get("/admin/login", adminAuthHandler.ServeLoginHint)

	// Identity
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Content
	videosHandler := videosfeature.NewHandler(db, svc.notifier, svc.audit, errLog, logger)
	r.Mount("/api/videos", videosfeature.Routes(videosHandler))

	reportsHandler := reportsfeature.NewHandler(db, svc.files, svc.notifier, svc.audit, errLog, logger)
	reportsHandler.LinkTTL = appCfg.StorageS3Presign
	r.Mount("/api/reports", reportsfeature.Routes(reportsHandler))

	commentsHandler := commentsfeature.NewHandler(db, svc.notifier, svc.audit, errLog, logger)
	svc.closers = append(svc.closers, commentsHandler.Close)
	r.Mount("/api/comments", commentsfeature.Routes(commentsHandler))

	// Member areas
	notificationsHandler := notificationsfeature.NewHandler(db, svc.notifier, svc.audit, errLog, logger)
	r.Mount("/api/notifications", notificationsfeature.Routes(notificationsHandler, authMgr.RequireMember))

	subscriptionsHandler := subscriptionsfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/subscriptions", subscriptionsfeature.Routes(subscriptionsHandler, authMgr.RequireMember))

	// Goals and market data
	goalsHandler := goalsfeature.NewHandler(db, svc.audit, errLog, logger)
	r.Mount("/api/goals", goalsfeature.Routes(goalsHandler))

	marketHandler := marketfeature.NewHandler(db, svc.quotes, errLog, logger)
	r.Mount("/api/market", marketfeature.Routes(marketHandler))

	datasetsHandler := datasetsfeature.NewHandler(db, svc.audit, errLog, logger)
	r.Mount("/api/datasets", datasetsfeature.Routes(datasetsHandler))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)

	// Admin API. The sign-in endpoints share the prefix and stay public
	// through adminauth.PublicPaths.
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Mount("/", adminauthfeature.Routes(adminAuthHandler))
		ar.Mount("/videos", videosfeature.AdminRoutes(videosHandler))
		ar.Mount("/reports", reportsfeature.AdminRoutes(reportsHandler))
		ar.Mount("/comments", commentsfeature.AdminRoutes(commentsHandler))
		ar.Mount("/notifications", notificationsfeature.AdminRoutes(notificationsHandler))
		ar.Mount("/subscribers", subscriptionsfeature.AdminRoutes(subscriptionsHandler))
		ar.Mount("/goals", goalsfeature.AdminRoutes(goalsHandler))
		ar.Mount("/datasets", datasetsfeature.AdminRoutes(datasetsHandler))
		ar.Mount("/audit", auditlogfeature.Routes(auditHandler))
	})

	logger.Info("routes mounted",
		zap.Bool("clerk_enabled", clerk != nil),
		zap.Bool("google_enabled", adminAuthHandler.GoogleEnabled()),
		zap.Int("admin_allowlist", allow.Len()),
		zap.Int("trusted_proxies", proxies.Len()))

	return r, nil
}

// splitList splits a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
