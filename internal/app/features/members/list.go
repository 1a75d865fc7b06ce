// internal/app/features/members/list.go
package members

import (
	"net/http"

	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Page is one page of members.
type Page struct {
	Items      []models.Member   `json:"items"`
	Pagination paging.Pagination `json:"pagination"`
}

// ServeList returns members ordered by name. ?search matches the name or
// phone digits; ?status and ?chitId narrow further.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := memberstore.ListFilter{Search: normalize.QueryParam(q.Get("search"))}
	if s := normalize.FilterID(q.Get("status")); s != "" {
		if s != models.MemberActive && s != models.MemberInactive {
			respond.Error(w, r, h.Log, apierr.Validation("Invalid status.",
				map[string]string{"status": "must be Active or Inactive"}))
			return
		}
		f.Status = s
	}
	chitID, err := inputval.OptionalObjectID("chitId", normalize.FilterID(q.Get("chitId")))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	f.ChitID = chitID
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.list")
	defer cancel()

	items, total, err := h.Members.List(ctx, f, p)
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "members.get")
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", m)
}
