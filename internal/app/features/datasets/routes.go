// internal/app/features/datasets/routes.go
package datasets

import "github.com/go-chi/chi/v5"

// Routes mounts /api/datasets.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeNames)
	r.Get("/{name}", h.ServeList)
	r.Get("/{name}/{ticker}", h.ServeOne)
	return r
}

// AdminRoutes mounts /api/admin/datasets.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Put("/{name}/{ticker}", h.HandleUpsert)
	r.Delete("/{name}/{ticker}", h.HandleDelete)
	return r
}
