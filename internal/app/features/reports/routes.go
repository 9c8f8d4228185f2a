// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes mounts the public catalog under /api/reports.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeOne)
	r.Get("/{id}/download", h.ServeDownload)
	return r
}

// AdminRoutes mounts the backend under /api/admin/reports.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAdminList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeAdminOne)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/publish", h.HandlePublish)
	r.Post("/{id}/file", h.HandleUpload)
	return r
}
