// internal/app/features/payments/confirm.go
package payments

import (
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// HandleConfirm marks an entry as confirmed by the admin. Confirmation is a
// one-way switch: a second confirm is a conflict.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "payments.confirm")
	defer cancel()

	p, err := h.Payments.Confirm(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventPaymentConfirmed, audit.EntityPayment, p.ID,
		map[string]string{"invoice_number": p.InvoiceNumber})

	e, err := h.Ledger.Get(ctx, id, h.now())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "Payment confirmed.", e)
}
