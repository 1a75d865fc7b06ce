// internal/app/features/chits/list.go
package chits

import (
	"net/http"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Page is one page of chits.
type Page struct {
	Items      []models.Chit     `json:"items"`
	Pagination paging.Pagination `json:"pagination"`
}

// ServeList returns chits ordered by name. ?search matches the name,
// ?status one of the chit states.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := chitstore.ListFilter{Search: normalize.QueryParam(q.Get("search"))}
	if s := normalize.FilterID(q.Get("status")); s != "" {
		st := ledger.ChitStatus(s)
		if !ledger.ValidChitStatus(st) {
			respond.Error(w, r, h.Log, apierr.Validation("Invalid status.",
				map[string]string{"status": "must be Upcoming, Ongoing, Active, Closed or Completed"}))
			return
		}
		f.Status = st
	}
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "chits.list")
	defer cancel()

	items, total, err := h.Chits.List(ctx, f, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", Page{Items: items, Pagination: paging.Build(p, total)})
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "chits.get")
	defer cancel()

	c, err := h.Chits.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", c)
}

// ServeMembers lists every member assigned to the chit.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "chits.members")
	defer cancel()

	if _, err := h.Chits.GetByID(ctx, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	members, err := h.Members.ListByChit(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", members)
}
