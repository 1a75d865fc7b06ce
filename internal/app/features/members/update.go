// internal/app/features/members/update.go
package members

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type updateInput struct {
	Name              *string            `json:"name" validate:"omitempty,max=200" label:"Name"`
	Phone             *string            `json:"phone" validate:"omitempty,min=7,max=16" label:"Phone"`
	Email             *string            `json:"email" validate:"omitempty,emailaddr" label:"Email"`
	Address           *string            `json:"address" validate:"omitempty,max=500" label:"Address"`
	Status            *string            `json:"status" validate:"omitempty,memberstatus" label:"Status"`
	SecurityDocuments *[]string          `json:"securityDocuments" validate:"omitempty,max=20,dive,max=500" label:"Security documents"`
	Chits             *[]assignmentInput `json:"chits" validate:"omitempty,max=20,dive" label:"Chits"`
}

// HandleUpdate applies a partial update. A submitted chits list replaces the
// member's assignments: seats are taken in newly listed chits and given back
// in dropped ones. Retained assignments keep their join date.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in updateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if in.Name != nil {
		*in.Name = htmlsanitize.Text(normalize.Name(*in.Name))
		if *in.Name == "" {
			respond.Error(w, r, h.Log, apierr.Validation("Name cannot be blank.", map[string]string{"name": "required"}))
			return
		}
	}
	if in.Phone != nil {
		*in.Phone = normalize.Phone(*in.Phone)
		if *in.Phone == "" {
			respond.Error(w, r, h.Log, apierr.Validation("Phone cannot be blank.", map[string]string{"phone": "required"}))
			return
		}
	}
	if in.Email != nil {
		*in.Email = normalize.Email(*in.Email)
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if in.Chits != nil && len(*in.Chits) == 0 {
		respond.Error(w, r, h.Log, apierr.Validation("A member must hold at least one chit. Delete the member instead.",
			map[string]string{"chits": "at least one chit is required"}))
		return
	}

	u := memberstore.Update{
		Name:   in.Name,
		Phone:  in.Phone,
		Email:  in.Email,
		Status: in.Status,
	}
	if in.Address != nil {
		addr := htmlsanitize.Text(*in.Address)
		u.Address = &addr
	}
	if in.SecurityDocuments != nil {
		docs := make([]string, 0, len(*in.SecurityDocuments))
		for _, d := range *in.SecurityDocuments {
			if d = htmlsanitize.Text(d); d != "" {
				docs = append(docs, d)
			}
		}
		u.SecurityDocuments = &docs
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.update")
	defer cancel()

	var added, removed []primitive.ObjectID
	if in.Chits != nil {
		next, err := assignments(*in.Chits)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		cur, err := h.Members.GetByID(ctx, id)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		next, added, removed = mergeAssignments(cur.Chits, next, h.now())
		if err := h.reserve(ctx, added); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		u.Chits = &next
	}

	m, err := h.Members.Update(ctx, id, u)
	if err != nil {
		h.release(ctx, added)
		respond.Error(w, r, h.Log, err)
		return
	}
	h.release(ctx, removed)

	details := map[string]string{"name": m.Name}
	if len(added) > 0 || len(removed) > 0 {
		h.Log.Info("member chits changed",
			zap.String("member_id", m.ID.Hex()),
			zap.Int("added", len(added)),
			zap.Int("removed", len(removed)))
		details["chits_added"] = hexList(added)
		details["chits_removed"] = hexList(removed)
	}
	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventMemberUpdated, audit.EntityMember, m.ID, details)
	respond.OK(w, "Member updated.", m)
}

// mergeAssignments carries join dates and unspecified statuses over from
// cur, and reports which chits were added and removed.
func mergeAssignments(cur, next []models.ChitAssignment, now time.Time) ([]models.ChitAssignment, []primitive.ObjectID, []primitive.ObjectID) {
	old := make(map[primitive.ObjectID]models.ChitAssignment, len(cur))
	for _, a := range cur {
		old[a.ChitID] = a
	}
	var added []primitive.ObjectID
	kept := make(map[primitive.ObjectID]bool, len(next))
	for i, a := range next {
		prev, ok := old[a.ChitID]
		if !ok {
			added = append(added, a.ChitID)
			next[i].JoinedAt = now
			if next[i].Status == "" {
				next[i].Status = models.AssignmentActive
			}
			continue
		}
		kept[a.ChitID] = true
		next[i].JoinedAt = prev.JoinedAt
		if next[i].Status == "" {
			next[i].Status = prev.Status
		}
	}
	var removed []primitive.ObjectID
	for _, a := range cur {
		if !kept[a.ChitID] {
			removed = append(removed, a.ChitID)
		}
	}
	return next, added, removed
}

func hexList(ids []primitive.ObjectID) string {
	hex := make([]string, len(ids))
	for i, id := range ids {
		hex[i] = id.Hex()
	}
	return strings.Join(hex, ",")
}
