// internal/app/features/market/routes.go
package market

import "github.com/go-chi/chi/v5"

// Routes mounts /api/market.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/quote/{tickers}", h.ServeQuote)
	r.Get("/history/{ticker}", h.ServeHistory)
	r.Get("/dashboard", h.ServeDashboard)
	return r
}
