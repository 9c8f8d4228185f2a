// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for the portal.
//
// Values come from config files, FIIPORTAL_* environment variables or
// command-line flags (see LoadConfig). WAFFLE's CoreConfig keeps the
// framework-level settings: ports, TLS, logging, CORS and body limits.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Admin sessions
	JWTSecret         string        // HS256 key for the admin_token cookie
	AdminTokenTTL     time.Duration // lifetime of an admin token
	AdminEmails       string        // comma-separated allowlist
	AdminCookieDomain string        // blank means current host

	// Member identity (Clerk networkless verification)
	ClerkJWTKey            string // PEM public key
	ClerkIssuer            string
	ClerkAuthorizedParties string // comma-separated azp values

	// Google sign-in for admins
	GoogleClientID     string
	GoogleClientSecret string
	SessionKey         string // signs the OAuth state cookie

	// Base URL for email links and the OAuth callback
	BaseURL  string
	SiteName string

	// Reverse proxies allowed to set X-Forwarded-For (IPs/CIDRs, comma separated)
	TrustedProxies string

	// Report storage
	StorageType       string // "local" or "s3"
	StorageLocalPath  string
	StorageLocalURL   string
	StorageS3Endpoint string
	StorageS3Access   string
	StorageS3Secret   string
	StorageS3Bucket   string
	StorageS3Region   string
	StorageS3Presign  time.Duration

	// Email (Resend)
	ResendAPIKey  string
	MailFrom      string
	MailFromName  string
	MailQueueSize int

	// Market data upstream
	MarketBaseURL  string
	MarketAPIToken string
	MarketTimeout  time.Duration

	// Background jobs
	GoalsRecalcInterval time.Duration

	// Audit logging destinations: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string
}
