// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
)

// Handler reports who the caller is.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Me is the identity answer. Member fields are empty for anonymous callers
// and for admins browsing without a member session.
type Me struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ImageURL      string `json:"image_url,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
	AdminEmail    string `json:"admin_email,omitempty"`
}

// ServeMe returns the identities found on the request. It never fails.
//
// Route: GET /api/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	var out Me
	if m, ok := auth.CurrentMember(r); ok {
		out.Authenticated = true
		out.UserID = m.UserID
		out.Name = m.DisplayName()
		out.Email = m.Email
		out.ImageURL = m.ImageURL
	}
	if a, ok := auth.CurrentAdmin(r); ok {
		out.Authenticated = true
		out.IsAdmin = true
		out.AdminEmail = a.Email
		if out.Name == "" {
			out.Name = a.Name
		}
		if out.Email == "" {
			out.Email = a.Email
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	respond.OK(w, out)
}
