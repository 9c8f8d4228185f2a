// Package auth resolves who is calling: an admin (admin_token cookie) and/or
// a member (Clerk session token).
package auth

import (
	"context"
	"net/http"
)

// Admin is a signed-in backend operator.
type Admin struct {
	Email string
	Name  string
}

// Member is a portal user authenticated by the identity provider.
// UserID is the provider's subject and is what comments, likes and
// notifications are keyed by.
type Member struct {
	UserID   string
	Name     string
	Email    string
	ImageURL string
}

// DisplayName falls back to the email's local part, then "Membro".
func (m *Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if m.Email != "" {
		for i := 0; i < len(m.Email); i++ {
			if m.Email[i] == '@' {
				return m.Email[:i]
			}
		}
		return m.Email
	}
	return "Membro"
}

type ctxKey int

const (
	adminKey ctxKey = iota
	memberKey
)

// CurrentAdmin returns the admin in context, if any.
func CurrentAdmin(r *http.Request) (*Admin, bool) {
	a, ok := r.Context().Value(adminKey).(*Admin)
	return a, ok && a != nil
}

// CurrentMember returns the member in context, if any.
func CurrentMember(r *http.Request) (*Member, bool) {
	m, ok := r.Context().Value(memberKey).(*Member)
	return m, ok && m != nil
}

// ContextWithAdmin stores a in ctx.
func ContextWithAdmin(ctx context.Context, a *Admin) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

// ContextWithMember stores m in ctx.
func ContextWithMember(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, memberKey, m)
}

// WithAdmin returns r carrying a. Handler tests use it to skip cookies.
func WithAdmin(r *http.Request, a *Admin) *http.Request {
	return r.WithContext(ContextWithAdmin(r.Context(), a))
}

// WithMember returns r carrying m.
func WithMember(r *http.Request, m *Member) *http.Request {
	return r.WithContext(ContextWithMember(r.Context(), m))
}
