// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/members.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Post("/import", h.HandleImport)
		pr.Get("/{id}", h.ServeGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Get("/{id}/welcome-letter", h.ServeWelcomeLetter)
	})
	return r
}
