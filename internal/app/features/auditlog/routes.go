// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/audit. Admin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Get("/categories", h.ServeCategories)
		pr.Get("/entity/{id}", h.ServeEntity)
	})

	return r
}
