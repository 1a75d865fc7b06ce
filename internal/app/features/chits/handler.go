// internal/app/features/chits/handler.go
package chits

import (
	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func init() {
	apierr.Register(chitstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(chitstore.ErrLimitBelowEnrolled, apierr.KindConflict)
	apierr.Register(chitstore.ErrChitFull, apierr.KindConflict)
}

// Handler serves chit scheme CRUD.
type Handler struct {
	DB       *mongo.Database
	Chits    *chitstore.Store
	Members  *memberstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Chits:    chitstore.New(db),
		Members:  memberstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}
