// internal/app/features/videos/routes.go
package videos

import "github.com/go-chi/chi/v5"

// Routes mounts the public catalog under /api/videos.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeOne)
	return r
}

// AdminRoutes mounts the backend under /api/admin/videos. The admin guard
// on the root router protects it.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAdminList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeAdminOne)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/publish", h.HandlePublish)
	return r
}
