// internal/app/features/notifications/routes.go
package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the inbox under /api/notifications behind requireMember.
func Routes(h *Handler, requireMember func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireMember)
	r.Get("/", h.ServeList)
	r.Patch("/", h.HandleMarkAllRead)
	r.Patch("/{id}", h.HandleMarkRead)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

// AdminRoutes mounts the broadcast under /api/admin/notifications.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleBroadcast)
	return r
}
