// internal/app/features/goals/routes.go
package goals

import "github.com/go-chi/chi/v5"

// Routes mounts /api/goals.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeActive)
	return r
}

// AdminRoutes mounts /api/admin/goals.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAdminList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeAdminOne)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
