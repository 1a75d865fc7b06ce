// internal/app/features/payments/handler.go
package payments

import (
	"time"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	counterstore "github.com/dalemusser/chitfund/internal/app/store/counters"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	paymentstore "github.com/dalemusser/chitfund/internal/app/store/payments"
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/metrics"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func init() {
	apierr.Register(chitstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(memberstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(paymentstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(ledgerqueries.ErrNotFound, apierr.KindNotFound)
	apierr.Register(paymentstore.ErrAlreadyConfirmed, apierr.KindConflict)
	apierr.Register(paymentstore.ErrDuplicateSlot, apierr.KindConflict)
}

// Handler serves the payment ledger API: recording slot payments, the
// enriched list/detail/history reads, confirmation, export and invoices.
type Handler struct {
	DB       *mongo.Database
	Payments *paymentstore.Store
	Chits    *chitstore.Store
	Members  *memberstore.Store
	Counters *counterstore.Store
	Ledger   *ledgerqueries.Service
	Notices  *notices.Notices
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// Now is the clock used for status derivation; tests pin it.
	Now func() time.Time
}

func NewHandler(
	db *mongo.Database,
	ledger *ledgerqueries.Service,
	notes *notices.Notices,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:       db,
		Payments: paymentstore.New(db),
		Chits:    chitstore.New(db),
		Members:  memberstore.New(db),
		Counters: counterstore.New(db),
		Ledger:   ledger,
		Notices:  notes,
		AuditLog: audit,
		Metrics:  m,
		Log:      logger,
		Now:      time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}
