// internal/app/features/comments/routes.go
package comments

import "github.com/go-chi/chi/v5"

// Routes mounts the member API under /api/comments. Handlers that need a
// member check for one themselves so that admins can delete as well.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/like", h.HandleLike)
	return r
}

// AdminRoutes mounts moderation under /api/admin/comments.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRecent)
	r.Delete("/{id}", h.HandleAdminDelete)
	return r
}
