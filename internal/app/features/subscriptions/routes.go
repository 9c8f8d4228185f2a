// internal/app/features/subscriptions/routes.go
package subscriptions

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/subscriptions behind requireMember.
func Routes(h *Handler, requireMember func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireMember)
	r.Get("/", h.ServeOwn)
	r.Put("/", h.HandleUpsert)
	r.Delete("/", h.HandleDelete)
	return r
}

// AdminRoutes mounts /api/admin/subscribers.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAdminList)
	return r
}
