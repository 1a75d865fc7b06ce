// internal/app/features/payments/routes.go
package payments

import (
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/payment. Every route requires the admin session.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		// fixed paths before /{id}
		pr.Get("/history", h.ServeHistory)
		pr.Get("/export", h.ServeExport)

		pr.Get("/{id}", h.ServeGet)
		pr.Get("/{id}/invoice", h.ServeInvoice)
		pr.Patch("/{id}/confirm", h.HandleConfirm)
		pr.Post("/{id}/confirm", h.HandleConfirm)
	})
	return r
}
