// internal/app/features/chits/create.go
package chits

import (
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
)

type createInput struct {
	Name                 string       `json:"name" validate:"required,max=200" label:"Name"`
	Location             string       `json:"location" validate:"max=200" label:"Location"`
	Amount               money.Amount `json:"amount" validate:"gte=0" label:"Amount"`
	MonthlyPayableAmount money.Amount `json:"monthlyPayableAmount" validate:"gte=0" label:"Monthly payable amount"`
	Duration             int          `json:"duration" validate:"min=1,max=600" label:"Duration"`
	MembersLimit         int          `json:"membersLimit" validate:"min=1,max=10000" label:"Members limit"`
	StartDate            string       `json:"startDate" validate:"required" label:"Start date"`
	CycleDay             int          `json:"cycleDay" validate:"min=1,max=31" label:"Cycle day"`
	Status               string       `json:"status" validate:"omitempty,chitstatus" label:"Status"`
}

// HandleCreate adds a chit. The status follows the start date unless the
// admin asks for Closed or Completed.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Name = htmlsanitize.Text(normalize.Name(in.Name))
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	start, err := inputval.Date("startDate", in.StartDate)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if in.Name == "" {
		respond.Error(w, r, h.Log, apierr.Validation("Name is required.", map[string]string{"name": "required"}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "chits.create")
	defer cancel()

	c, err := h.Chits.Create(ctx, models.Chit{
		Name:                 in.Name,
		Location:             htmlsanitize.Text(in.Location),
		Amount:               in.Amount,
		MonthlyPayableAmount: in.MonthlyPayableAmount,
		Duration:             in.Duration,
		MembersLimit:         in.MembersLimit,
		StartDate:            start,
		CycleDay:             in.CycleDay,
		Status:               ledger.ChitStatus(in.Status),
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventChitCreated, audit.EntityChit, c.ID,
		map[string]string{"name": c.Name})
	respond.Created(w, "Chit created.", c)
}
