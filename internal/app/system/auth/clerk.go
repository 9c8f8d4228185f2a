package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is where Clerk's frontend SDK keeps the session token.
const SessionCookie = "__session"

// ErrIdentityDisabled is returned when no Clerk key is configured.
var ErrIdentityDisabled = errors.New("auth: identity provider not configured")

type clerkClaims struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	AZP      string `json:"azp,omitempty"`
	SID      string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// ClerkConfig configures networkless session-token verification.
type ClerkConfig struct {
	PublicKeyPEM      string   // instance JWT public key
	Issuer            string   // optional, e.g. https://clerk.example.com
	AuthorizedParties []string // optional azp allowlist (origins)
	Leeway            time.Duration
}

// ClerkVerifier validates Clerk session JWTs (RS256) with the instance's
// public key, without calling Clerk.
type ClerkVerifier struct {
	key     *rsa.PublicKey
	issuer  string
	parties map[string]struct{}
	leeway  time.Duration
	now     func() time.Time
}

// NewClerkVerifier parses the PEM key. An empty key returns (nil, nil) so
// the portal can run without member sign-in.
func NewClerkVerifier(cfg ClerkConfig) (*ClerkVerifier, error) {
	pem := strings.TrimSpace(strings.ReplaceAll(cfg.PublicKeyPEM, `\n`, "\n"))
	if pem == "" {
		return nil, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("auth: parse clerk public key: %w", err)
	}
	v := &ClerkVerifier{
		key:     key,
		issuer:  strings.TrimSpace(cfg.Issuer),
		parties: make(map[string]struct{}),
		leeway:  cfg.Leeway,
		now:     time.Now,
	}
	if v.leeway <= 0 {
		v.leeway = 5 * time.Second
	}
	for _, p := range cfg.AuthorizedParties {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			v.parties[p] = struct{}{}
		}
	}
	return v, nil
}

// Verify checks signature, exp/nbf, issuer and azp, and returns the member.
func (v *ClerkVerifier) Verify(token string) (*Member, error) {
	if v == nil {
		return nil, ErrIdentityDisabled
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims clerkClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return v.key, nil }, opts...); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if len(v.parties) > 0 && claims.AZP != "" {
		if _, ok := v.parties[strings.TrimRight(claims.AZP, "/")]; !ok {
			return nil, ErrInvalidToken
		}
	}
	return &Member{
		UserID:   claims.Subject,
		Name:     claims.Name,
		Email:    strings.ToLower(strings.TrimSpace(claims.Email)),
		ImageURL: claims.ImageURL,
	}, nil
}

// SessionToken extracts a Clerk token from "Authorization: Bearer" or the
// __session cookie.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
