// internal/app/features/chits/routes.go
package chits

import (
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/chits.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Get("/{id}/members", h.ServeMembers)
	})
	return r
}
