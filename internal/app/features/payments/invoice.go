// internal/app/features/payments/invoice.go
package payments

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

// ServeInvoice renders the invoice PDF of one entry.
func (h *Handler) ServeInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "payments.invoice")
	defer cancel()

	now := h.now()
	e, err := h.Ledger.Get(ctx, id, now)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	pdf, err := pdfdoc.RenderInvoice(notices.Invoice(h.Notices.Letterhead(), e, now))
	if err != nil {
		h.Log.Error("render invoice", zap.String("invoice_number", e.InvoiceNumber), zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+e.InvoiceNumber+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
