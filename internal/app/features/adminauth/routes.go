// internal/app/features/adminauth/routes.go
package adminauth

import "github.com/go-chi/chi/v5"

// Routes mounts the sign-in API under /api/admin. Login and the OAuth
// endpoints are left open by the admin guard; /me answers 401 itself.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.ServeMe)
	r.Get("/auth/google", h.ServeGoogle)
	r.Get("/auth/google/callback", h.ServeGoogleCallback)
	return r
}

// PublicPaths are the /api/admin and /admin paths reachable without an admin.
var PublicPaths = []string{
	"/admin/login",
	"/api/admin/login",
	"/api/admin/logout",
	"/api/admin/me",
	"/api/admin/auth",
}
