// internal/app/features/members/handler.go
package members

import (
	"context"
	"time"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func init() {
	apierr.Register(memberstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(chitstore.ErrNotFound, apierr.KindNotFound)
	apierr.Register(chitstore.ErrChitFull, apierr.KindConflict)
}

// Handler serves member enrollment and maintenance.
type Handler struct {
	DB       *mongo.Database
	Members  *memberstore.Store
	Chits    *chitstore.Store
	Notices  *notices.Notices
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	Now func() time.Time
}

func NewHandler(db *mongo.Database, notes *notices.Notices, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Members:  memberstore.New(db),
		Chits:    chitstore.New(db),
		Notices:  notes,
		AuditLog: audit,
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

// chitsByHex loads the chits a member is assigned to, keyed by id hex.
// Missing chits are left out.
func (h *Handler) chitsByHex(ctx context.Context, m models.Member) (map[string]models.Chit, error) {
	ids := make([]primitive.ObjectID, 0, len(m.Chits))
	for _, a := range m.Chits {
		ids = append(ids, a.ChitID)
	}
	byID, err := h.Chits.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Chit, len(byID))
	for id, c := range byID {
		out[id.Hex()] = c
	}
	return out, nil
}
