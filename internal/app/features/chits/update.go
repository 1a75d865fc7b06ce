// internal/app/features/chits/update.go
package chits

import (
	"net/http"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/go-chi/chi/v5"
)

// updateInput carries only the fields being changed.
type updateInput struct {
	Name                 *string       `json:"name" validate:"omitempty,max=200" label:"Name"`
	Location             *string       `json:"location" validate:"omitempty,max=200" label:"Location"`
	Amount               *money.Amount `json:"amount" validate:"omitempty,gte=0" label:"Amount"`
	MonthlyPayableAmount *money.Amount `json:"monthlyPayableAmount" validate:"omitempty,gte=0" label:"Monthly payable amount"`
	Duration             *int          `json:"duration" validate:"omitempty,min=1,max=600" label:"Duration"`
	MembersLimit         *int          `json:"membersLimit" validate:"omitempty,min=1,max=10000" label:"Members limit"`
	StartDate            *string       `json:"startDate" label:"Start date"`
	CycleDay             *int          `json:"cycleDay" validate:"omitempty,min=1,max=31" label:"Cycle day"`
	Status               *string       `json:"status" validate:"omitempty,chitstatus" label:"Status"`
}

// HandleUpdate applies a partial update. Lowering membersLimit below the
// current enrollment is a conflict.
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
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	u := chitstore.Update{
		Amount:               in.Amount,
		MonthlyPayableAmount: in.MonthlyPayableAmount,
		Duration:             in.Duration,
		MembersLimit:         in.MembersLimit,
		CycleDay:             in.CycleDay,
	}
	if in.Name != nil {
		name := htmlsanitize.Text(normalize.Name(*in.Name))
		if name == "" {
			respond.Error(w, r, h.Log, apierr.Validation("Name cannot be blank.", map[string]string{"name": "required"}))
			return
		}
		u.Name = &name
	}
	if in.Location != nil {
		loc := htmlsanitize.Text(*in.Location)
		u.Location = &loc
	}
	if in.StartDate != nil {
		var start time.Time
		if start, err = inputval.Date("startDate", *in.StartDate); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		if start.IsZero() {
			respond.Error(w, r, h.Log, apierr.Validation("Start date cannot be blank.", map[string]string{"startDate": "required"}))
			return
		}
		u.StartDate = &start
	}
	if in.Status != nil && *in.Status != "" {
		st := ledger.ChitStatus(*in.Status)
		u.Status = &st
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "chits.update")
	defer cancel()

	c, err := h.Chits.Update(ctx, id, u)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventChitUpdated, audit.EntityChit, c.ID,
		map[string]string{"name": c.Name, "status": string(c.Status)})
	respond.OK(w, "Chit updated.", c)
}
