// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minJWTSecret is the shortest accepted admin token key.
const minJWTSecret = 32

// appConfigKeys defines the portal's configuration keys. Each key can be
// set in a config file (mongo_uri), as FIIPORTAL_MONGO_URI, or as a
// --mongo_uri flag.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fiiportal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	// Admin sessions
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HS256 key for admin tokens (at least 32 chars)"},
	{Name: "admin_token_ttl", Default: "12h", Desc: "Admin token lifetime (e.g., 12h, 30m)"},
	{Name: "admin_emails", Default: "", Desc: "Comma-separated admin email allowlist"},
	{Name: "admin_cookie_domain", Default: "", Desc: "admin_token cookie domain (blank means current host)"},

	// Clerk
	{Name: "clerk_jwt_key", Default: "", Desc: "Clerk PEM public key for networkless session verification"},
	{Name: "clerk_issuer", Default: "", Desc: "Expected Clerk issuer (blank skips the check)"},
	{Name: "clerk_authorized_parties", Default: "", Desc: "Comma-separated allowed azp origins"},

	// Google OAuth
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Signing key for the OAuth state cookie"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for email links and OAuth callbacks"},
	{Name: "site_name", Default: "FII Portal", Desc: "Site name used in emails"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is believed (blank trusts none)"},

	// Report storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/reports", Desc: "Local storage path for report PDFs"},
	{Name: "storage_local_url", Default: "/files/reports", Desc: "URL prefix for local files"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint URL for MinIO/R2 (blank uses AWS)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_region", Default: "", Desc: "S3 region"},
	{Name: "storage_s3_presign_ttl", Default: "15m", Desc: "Lifetime of presigned download links"},

	// Email
	{Name: "resend_api_key", Default: "", Desc: "Resend API key (blank logs emails instead of sending)"},
	{Name: "mail_from", Default: "noreply@fiiportal.com.br", Desc: "From email address"},
	{Name: "mail_from_name", Default: "FII Portal", Desc: "From display name"},
	{Name: "mail_queue_size", Default: 1000, Desc: "Buffered emails before new ones are dropped"},

	// Market data
	{Name: "market_base_url", Default: "https://brapi.dev", Desc: "Market data API base URL (blank disables the proxy)"},
	{Name: "market_api_token", Default: "", Desc: "Market data API token"},
	{Name: "market_timeout", Default: "10s", Desc: "Market data request timeout"},

	{Name: "goals_recalc_interval", Default: "15m", Desc: "How often active goal progress is recomputed"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and the portal's AppConfig.
//
// Precedence is flags > env > files > defaults; core keys use the WAFFLE_
// prefix and app keys use FIIPORTAL_.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FIIPORTAL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:         appValues.String("jwt_secret"),
		AdminTokenTTL:     appValues.Duration("admin_token_ttl", 12*time.Hour),
		AdminEmails:       appValues.String("admin_emails"),
		AdminCookieDomain: appValues.String("admin_cookie_domain"),

		ClerkJWTKey:            appValues.String("clerk_jwt_key"),
		ClerkIssuer:            appValues.String("clerk_issuer"),
		ClerkAuthorizedParties: appValues.String("clerk_authorized_parties"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		SessionKey:         appValues.String("session_key"),

		BaseURL:  appValues.String("base_url"),
		SiteName: appValues.String("site_name"),

		TrustedProxies: appValues.String("trusted_proxies"),

		StorageType:       strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath:  appValues.String("storage_local_path"),
		StorageLocalURL:   appValues.String("storage_local_url"),
		StorageS3Endpoint: appValues.String("storage_s3_endpoint"),
		StorageS3Access:   appValues.String("storage_s3_access_key"),
		StorageS3Secret:   appValues.String("storage_s3_secret_key"),
		StorageS3Bucket:   appValues.String("storage_s3_bucket"),
		StorageS3Region:   appValues.String("storage_s3_region"),
		StorageS3Presign:  appValues.Duration("storage_s3_presign_ttl", 15*time.Minute),

		ResendAPIKey:  appValues.String("resend_api_key"),
		MailFrom:      appValues.String("mail_from"),
		MailFromName:  appValues.String("mail_from_name"),
		MailQueueSize: appValues.Int("mail_queue_size"),

		MarketBaseURL:  appValues.String("market_base_url"),
		MarketAPIToken: appValues.String("market_api_token"),
		MarketTimeout:  appValues.Duration("market_timeout", 10*time.Second),

		GoalsRecalcInterval: appValues.Duration("goals_recalc_interval", 15*time.Minute),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations the portal cannot run with.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}

	if len(appCfg.JWTSecret) < minJWTSecret {
		return fmt.Errorf("jwt_secret must be at least %d characters", minJWTSecret)
	}
	if appCfg.AdminTokenTTL <= 0 {
		return fmt.Errorf("admin_token_ttl must be positive")
	}

	if _, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type s3 requires storage_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 's3')", appCfg.StorageType)
	}

	for key, v := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_admin": appCfg.AuditLogAdmin,
	} {
		switch v {
		case "", auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.AdminEmails == "" {
			logger.Warn("admin_emails is empty; no one can sign in to the admin area")
		}
		if appCfg.ClerkJWTKey == "" {
			logger.Warn("clerk_jwt_key is empty; member features are disabled")
		}
	}

	return nil
}
