// internal/app/features/members/delete.go
package members

import (
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// HandleDelete removes a member and frees their seats. Ledger entries that
// reference the member stay; reports show them as a deleted member.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.delete")
	defer cancel()

	m, err := h.Members.Delete(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.release(ctx, chitIDs(m.Chits))

	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventMemberDeleted, audit.EntityMember, m.ID,
		map[string]string{"name": m.Name})
	respond.OK(w, "Member deleted.", map[string]string{"id": m.ID.Hex()})
}
