// internal/app/features/members/enroll.go
package members

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type assignmentInput struct {
	ChitID string `json:"chitId" validate:"required,objectid" label:"Chit"`
	Slots  int    `json:"slots" validate:"omitempty,min=1,max=100" label:"Slots"`
	Status string `json:"status" validate:"omitempty,oneof=Active Completed Left" label:"Assignment status"`
}

// assignments converts the submitted list, rejecting a chit listed twice.
func assignments(in []assignmentInput) ([]models.ChitAssignment, error) {
	out := make([]models.ChitAssignment, 0, len(in))
	seen := make(map[primitive.ObjectID]bool, len(in))
	for i, a := range in {
		id, err := inputval.ObjectID("chits["+strconv.Itoa(i)+"].chitId", a.ChitID)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, apierr.Validation("A chit is listed more than once.",
				map[string]string{"chits[" + strconv.Itoa(i) + "].chitId": "duplicate chit"})
		}
		seen[id] = true
		slots := a.Slots
		if slots < 1 {
			slots = 1
		}
		out = append(out, models.ChitAssignment{ChitID: id, Slots: slots, Status: a.Status})
	}
	return out, nil
}

// reserve takes one seat in each chit. On failure every seat taken so far is
// given back and the error names the chit that refused.
func (h *Handler) reserve(ctx context.Context, ids []primitive.ObjectID) error {
	for i, id := range ids {
		if err := h.Chits.Reserve(ctx, id); err != nil {
			h.release(ctx, ids[:i])
			if e := apierr.From(err); e.Kind != apierr.KindInternal {
				e.Message = fmt.Sprintf("Chit %s: %s.", id.Hex(), err.Error())
				return e
			}
			return err
		}
	}
	return nil
}

// release gives seats back. Failures are logged; the counter is advisory
// once the member document no longer references the chit.
func (h *Handler) release(ctx context.Context, ids []primitive.ObjectID) {
	for _, id := range ids {
		if err := h.Chits.Release(ctx, id); err != nil {
			h.Log.Warn("release chit seat failed", zap.String("chit_id", id.Hex()), zap.Error(err))
		}
	}
}

func chitIDs(as []models.ChitAssignment) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(as))
	for i, a := range as {
		ids[i] = a.ChitID
	}
	return ids
}
