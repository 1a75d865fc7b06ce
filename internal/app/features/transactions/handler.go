// internal/app/features/transactions/handler.go
package transactions

import (
	"time"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	counterstore "github.com/dalemusser/chitfund/internal/app/store/counters"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	transactionstore "github.com/dalemusser/chitfund/internal/app/store/transactions"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func init() {
	apierr.Register(transactionstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(chitstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(memberstore.ErrNotFound, apierr.KindNotFound)
}

// Handler serves the free-form transaction and transfer records.
type Handler struct {
	Transactions *transactionstore.Store
	Chits        *chitstore.Store
	Members      *memberstore.Store
	Counters     *counterstore.Store
	AuditLog     *auditlog.Logger
	Log          *zap.Logger

	Now func() time.Time
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Transactions: transactionstore.New(db),
		Chits:        chitstore.New(db),
		Members:      memberstore.New(db),
		Counters:     counterstore.New(db),
		AuditLog:     audit,
		Log:          logger,
		Now:          time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}
