// internal/app/features/auditlog/handler.go
package auditlog

import (
	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events *audit.Store
	Admins *adminstore.Store
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Admins: adminstore.New(db),
		Log:    logger,
	}
}
