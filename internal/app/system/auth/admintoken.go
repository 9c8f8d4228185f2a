package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AdminCookie holds the admin JWT.
	AdminCookie = "admin_token"
	// TokenIssuer is the iss claim on admin tokens.
	TokenIssuer = "fiiportal"
	// MinSecretLen is the shortest accepted signing secret.
	MinSecretLen = 32
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

type adminClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AdminTokens issues and validates HS256 admin tokens.
type AdminTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAdminTokens requires a secret of at least MinSecretLen bytes.
func NewAdminTokens(secret string, ttl time.Duration) (*AdminTokens, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("auth: jwt secret must be at least %d characters", MinSecretLen)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens (and the admin cookie).
func (t *AdminTokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for email.
func (t *AdminTokens) Issue(email, name string) (string, error) {
	now := t.now()
	claims := adminClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(strings.TrimSpace(email)),
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign admin token: %w", err)
	}
	return signed, nil
}

// Parse validates method, issuer and expiry and returns the admin.
func (t *AdminTokens) Parse(token string) (*Admin, error) {
	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Admin{Email: claims.Subject, Name: claims.Name}, nil
}

// CookieOptions controls the admin cookie attributes.
type CookieOptions struct {
	Domain string
	Secure bool
}

// SetAdminCookie writes the HTTP-only admin_token cookie.
func SetAdminCookie(w http.ResponseWriter, token string, ttl time.Duration, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookie,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAdminCookie expires the admin cookie.
func ClearAdminCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookie,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
