// internal/app/features/payments/list.go
package payments

import (
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/go-chi/chi/v5"
)

// parseFilter reads chitId, memberId, paymentMode, status and month from the
// query string. Malformed values are rejected rather than ignored.
func parseFilter(r *http.Request) (ledgerqueries.Filter, error) {
	q := r.URL.Query()
	var f ledgerqueries.Filter
	var err error

	if f.ChitID, err = inputval.OptionalObjectID("chitId", normalize.FilterID(q.Get("chitId"))); err != nil {
		return f, err
	}
	if f.MemberID, err = inputval.OptionalObjectID("memberId", normalize.FilterID(q.Get("memberId"))); err != nil {
		return f, err
	}
	if mode := normalize.FilterID(q.Get("paymentMode")); mode != "" {
		if !inputval.IsValidPaymentMode(mode) {
			return f, apierr.Validation("Invalid paymentMode.", map[string]string{"paymentMode": "must be cash or online"})
		}
		f.PaymentMode = normalize.Lower(mode)
	}
	if s := normalize.FilterID(q.Get("status")); s != "" {
		st, ok := ledger.ParseStatus(s)
		if !ok {
			return f, apierr.Validation("Invalid status.", map[string]string{"status": "must be pending, partial, paid or overdue"})
		}
		f.Status = st
	}
	if m := normalize.QueryParam(q.Get("month")); m != "" {
		if _, err := ledger.ParseMonth(m); err != nil {
			return f, apierr.Validation("Invalid month.", map[string]string{"month": "must be YYYY-MM"})
		}
		f.Month = m
	}
	return f, nil
}

// ServeList returns one page of enriched entries, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "payments.list")
	defer cancel()

	page, err := h.Ledger.List(ctx, f, paging.Parse(r), h.now())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", page)
}

// ServeGet returns a single enriched entry.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "payments.get")
	defer cancel()

	e, err := h.Ledger.Get(ctx, id, h.now())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", e)
}

// ServeHistory returns a member's entries in one chit with per-month totals.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberID, err := inputval.ObjectID("memberId", q.Get("memberId"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	chitID, err := inputval.ObjectID("chitId", q.Get("chitId"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "payments.history")
	defer cancel()

	hist, err := h.Ledger.History(ctx, memberID, chitID, h.now())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	// With no entries there is nothing to render as a deleted reference,
	// so unknown ids are a 404.
	if len(hist.Entries) == 0 {
		chit, err := h.Chits.GetByID(ctx, chitID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		member, err := h.Members.GetByID(ctx, memberID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		hist.ChitName, hist.MemberName = chit.Name, member.Name
	}
	respond.OK(w, "", hist)
}
