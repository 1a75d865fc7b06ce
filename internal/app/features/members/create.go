// internal/app/features/members/create.go
package members

import (
	"context"
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.uber.org/zap"
)

type createInput struct {
	Name              string            `json:"name" validate:"required,max=200" label:"Name"`
	Phone             string            `json:"phone" validate:"required,min=7,max=16" label:"Phone"`
	Email             string            `json:"email" validate:"omitempty,emailaddr" label:"Email"`
	Address           string            `json:"address" validate:"max=500" label:"Address"`
	Status            string            `json:"status" validate:"omitempty,memberstatus" label:"Status"`
	SecurityDocuments []string          `json:"securityDocuments" validate:"max=20,dive,max=500" label:"Security documents"`
	Chits             []assignmentInput `json:"chits" validate:"required,min=1,max=20,dive" label:"Chits"`
}

// HandleCreate enrolls a member in one or more chits. A seat is reserved in
// every chit before the member is written; if any chit is full nothing is
// kept.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Name = htmlsanitize.Text(normalize.Name(in.Name))
	in.Phone = normalize.Phone(in.Phone)
	in.Email = normalize.Email(in.Email)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	as, err := assignments(in.Chits)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	docs := make([]string, 0, len(in.SecurityDocuments))
	for _, d := range in.SecurityDocuments {
		if d = htmlsanitize.Text(d); d != "" {
			docs = append(docs, d)
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.create")
	defer cancel()

	m, err := h.enroll(ctx, r, models.Member{
		Name:              in.Name,
		Phone:             in.Phone,
		Email:             in.Email,
		Address:           htmlsanitize.Text(in.Address),
		Status:            in.Status,
		SecurityDocuments: docs,
		Chits:             as,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, "Member enrolled.", m)
}

// enroll reserves a seat in every assigned chit, writes the member and
// queues the welcome letter. Seats are given back when the insert fails.
func (h *Handler) enroll(ctx context.Context, r *http.Request, m models.Member) (models.Member, error) {
	ids := chitIDs(m.Chits)
	if err := h.reserve(ctx, ids); err != nil {
		return models.Member{}, err
	}
	m, err := h.Members.Create(ctx, m)
	if err != nil {
		h.Log.Error("member insert failed; releasing seats", zap.Int("chits", len(ids)), zap.Error(err))
		h.release(ctx, ids)
		return models.Member{}, err
	}

	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventMemberCreated, audit.EntityMember, m.ID,
		map[string]string{"name": m.Name, "phone": m.Phone})

	if chits, err := h.chitsByHex(ctx, m); err != nil {
		h.Log.Warn("welcome letter skipped: load chits", zap.String("member_id", m.ID.Hex()), zap.Error(err))
	} else {
		h.Notices.Welcome(m, chits)
	}
	return m, nil
}
