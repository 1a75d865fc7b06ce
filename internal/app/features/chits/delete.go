// internal/app/features/chits/delete.go
package chits

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/app/system/txn"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DeleteResult reports the cascade.
type DeleteResult struct {
	MembersDetached int64 `json:"membersDetached"`
	MembersDeleted  int64 `json:"membersDeleted"`
}

// HandleDelete removes a chit and its assignments. Members who held no other
// chit are removed with it. Ledger entries are kept for the record.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "chits.delete")
	defer cancel()

	c, err := h.Chits.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var res DeleteResult
	err = txn.Run(ctx, h.DB.Client(), h.Log, func(ctx context.Context) error {
		// members first: a failure after this leaves an orphan chit the
		// admin can delete again, never members pointing at nothing
		detached, deleted, err := h.Members.DetachChit(ctx, id)
		if err != nil {
			return err
		}
		res = DeleteResult{MembersDetached: detached, MembersDeleted: deleted}
		return h.Chits.Delete(ctx, id)
	})
	if err != nil {
		h.Log.Error("chit delete failed", zap.String("chit_id", id.Hex()), zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventChitDeleted, audit.EntityChit, id, map[string]string{
		"name":             c.Name,
		"members_detached": strconv.FormatInt(res.MembersDetached, 10),
		"members_deleted":  strconv.FormatInt(res.MembersDeleted, 10),
	})
	respond.OK(w, "Chit deleted.", res)
}
