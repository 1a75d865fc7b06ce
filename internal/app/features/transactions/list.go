// internal/app/features/transactions/list.go
package transactions

import (
	"net/http"

	transactionstore "github.com/dalemusser/chitfund/internal/app/store/transactions"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Page is one page of transactions.
type Page struct {
	Items      []models.Transaction `json:"items"`
	Pagination paging.Pagination    `json:"pagination"`
}

// ServeList returns transactions newest first. ?memberId and ?chitId match
// either side of a transfer.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f transactionstore.ListFilter
	if t := normalize.Lower(normalize.FilterID(q.Get("type"))); t != "" {
		if t != models.TransactionTypePayment && t != models.TransactionTypeTransfer {
			respond.Error(w, r, h.Log, apierr.Validation("Invalid type.",
				map[string]string{"type": "must be transaction or transfer"}))
			return
		}
		f.Type = t
	}
	var err error
	if f.MemberID, err = inputval.OptionalObjectID("memberId", normalize.FilterID(q.Get("memberId"))); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if f.ChitID, err = inputval.OptionalObjectID("chitId", normalize.FilterID(q.Get("chitId"))); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "transactions.list")
	defer cancel()

	items, total, err := h.Transactions.List(ctx, f, p)
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
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "transactions.get")
	defer cancel()

	t, err := h.Transactions.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", t)
}
