// internal/app/features/members/letter.go
package members

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"github.com/dalemusser/chitfund/internal/app/system/pdfdoc"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeWelcomeLetter renders the member's welcome letter PDF on demand.
func (h *Handler) ServeWelcomeLetter(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "members.welcome_letter")
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	chits, err := h.chitsByHex(ctx, m)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	pdf, err := pdfdoc.RenderWelcomeLetter(notices.WelcomeLetter(h.Notices.Letterhead(), m, chits, h.now()))
	if err != nil {
		h.Log.Error("render welcome letter", zap.String("member_id", m.ID.Hex()), zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="welcome-`+m.ID.Hex()+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
