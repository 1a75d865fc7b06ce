// internal/app/features/payments/create.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	paymentstore "github.com/dalemusser/chitfund/internal/app/store/payments"
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxSlotsPerBatch bounds one request; members rarely hold more than a few.
const maxSlotsPerBatch = 50

// invoiceAttempts covers a counter that was reset behind existing invoices.
const invoiceAttempts = 3

// SkipDuplicate is the reason reported for a slot that was already paid
// for the month.
const SkipDuplicate = "duplicate"

type slotInput struct {
	SlotNumber      int          `json:"slotNumber" validate:"min=1" label:"Slot number"`
	PaidAmount      money.Amount `json:"paidAmount" validate:"gte=0" label:"Paid amount"`
	PenaltyAmount   money.Amount `json:"penaltyAmount" validate:"gte=0" label:"Penalty amount"`
	InterestPercent money.Amount `json:"interestPercent" validate:"gte=0,lte=100" label:"Interest percent"`
	Remarks         string       `json:"remarks" validate:"max=500" label:"Remarks"`
}

type createInput struct {
	ChitID       string      `json:"chitId" validate:"required,objectid" label:"Chit"`
	MemberID     string      `json:"memberId" validate:"required,objectid" label:"Member"`
	PaymentDate  string      `json:"paymentDate" label:"Payment date"`
	PaymentMonth string      `json:"paymentMonth" validate:"omitempty,yyyymm" label:"Payment month"`
	PaymentMode  string      `json:"paymentMode" validate:"required,paymentmode" label:"Payment mode"`
	Slots        []slotInput `json:"slots" validate:"required,min=1,max=50,dive" label:"Slots"`
}

// SkippedSlot is a submitted slot that was not recorded.
type SkippedSlot struct {
	SlotNumber int    `json:"slotNumber"`
	Reason     string `json:"reason"`
}

// CreateResult is the data payload of a batch payment.
type CreateResult struct {
	Created      []ledgerqueries.Entry `json:"created"`
	CreatedCount int                   `json:"createdCount"`
	Skipped      []SkippedSlot         `json:"skipped"`
	SkippedCount int                   `json:"skippedCount"`

	// FailedSlot is set when a write error stopped the batch; the slots in
	// Created before it were recorded and keep their invoice numbers.
	FailedSlot int `json:"failedSlot,omitempty"`
}

// HandleCreate records one ledger entry per submitted slot.
//
// A slot already recorded for the member, chit and month is skipped and
// reported; the existing entry is left untouched. When every slot is a
// duplicate the request fails with a conflict.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(in.Slots) > maxSlotsPerBatch {
		respond.Error(w, r, h.Log, apierr.Validation(fmt.Sprintf("At most %d slots per request.", maxSlotsPerBatch), nil))
		return
	}
	seen := make(map[int]bool, len(in.Slots))
	for i, s := range in.Slots {
		if seen[s.SlotNumber] {
			field := "slots[" + strconv.Itoa(i) + "].slotNumber"
			respond.Error(w, r, h.Log, apierr.Validation(
				fmt.Sprintf("Slot %d is listed more than once.", s.SlotNumber),
				map[string]string{field: "duplicate slot number in request"}))
			return
		}
		seen[s.SlotNumber] = true
	}

	chitID, _ := inputval.ObjectID("chitId", in.ChitID)
	memberID, _ := inputval.ObjectID("memberId", in.MemberID)
	now := h.now()
	paymentDate, err := inputval.Date("paymentDate", in.PaymentDate)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if paymentDate.IsZero() {
		paymentDate = now
	}
	// The due date is anchored in the month being paid for, which defaults
	// to the payment date's month.
	ref := paymentDate
	if in.PaymentMonth != "" {
		ref, _ = ledger.ParseMonth(in.PaymentMonth)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "payments.create")
	defer cancel()

	chit, err := h.Chits.GetByID(ctx, chitID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	member, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	assignment, ok := member.Assignment(chitID)
	if !ok || assignment.Status == models.AssignmentLeft {
		respond.Error(w, r, h.Log, apierr.Validation("Member is not enrolled in this chit.",
			map[string]string{"memberId": "not enrolled in chit"}))
		return
	}
	held := ledger.NormalizeSlots(assignment.Slots)
	for i, s := range in.Slots {
		if s.SlotNumber > held {
			field := "slots[" + strconv.Itoa(i) + "].slotNumber"
			respond.Error(w, r, h.Log, apierr.Validation(
				fmt.Sprintf("Slot %d exceeds the member's %d slot(s) in this chit.", s.SlotNumber, held),
				map[string]string{field: "exceeds member slots"}))
			return
		}
	}

	base := models.Payment{
		ChitID:       chitID,
		MemberID:     memberID,
		PaymentMonth: ledger.Month(ref),
		PaymentYear:  ref.Year(),
		PaymentDate:  paymentDate,
		DueDate:      ledger.DueDate(ref, chit.CycleDay),
		PaymentMode:  normalize.Lower(in.PaymentMode),
	}

	res := CreateResult{Created: []ledgerqueries.Entry{}, Skipped: []SkippedSlot{}}
	var createdIDs []primitive.ObjectID
	for _, s := range in.Slots {
		p := base
		p.SlotNumber = s.SlotNumber
		p.PaidAmount = s.PaidAmount
		p.PenaltyAmount = s.PenaltyAmount
		p.InterestPercent = s.InterestPercent
		p.InterestAmount = s.PaidAmount.Percent(s.InterestPercent.Decimal)
		p.Remarks = htmlsanitize.Text(s.Remarks)

		saved, err := h.insert(ctx, p)
		if errors.Is(err, paymentstore.ErrDuplicateSlot) {
			res.Skipped = append(res.Skipped, SkippedSlot{SlotNumber: s.SlotNumber, Reason: SkipDuplicate})
			continue
		}
		if err != nil {
			h.Log.Error("payment insert failed",
				zap.String("chit_id", chitID.Hex()),
				zap.String("member_id", memberID.Hex()),
				zap.Int("slot", s.SlotNumber),
				zap.Int("already_created", len(createdIDs)),
				zap.Error(err))
			res.FailedSlot = s.SlotNumber
			res.SkippedCount = len(res.Skipped)
			if len(createdIDs) > 0 {
				h.finish(ctx, r, &res, createdIDs, now)
			}
			respond.ErrorWithData(w, r, h.Log, err, res)
			return
		}
		createdIDs = append(createdIDs, saved.ID)
	}
	res.SkippedCount = len(res.Skipped)
	h.Metrics.DuplicateSlots(res.SkippedCount)

	if len(createdIDs) == 0 {
		respond.ErrorWithData(w, r, h.Log,
			apierr.Conflict("Every submitted slot is already recorded for "+base.PaymentMonth+"."), res)
		return
	}
	if err := h.finish(ctx, r, &res, createdIDs, now); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Notices.PaymentReceipt(member.Email, res.Created)

	respond.Created(w, "Payment recorded.", res)
}

// finish loads the enriched entries for the recorded slots into res and
// audits them. It runs for partial batches too, since those writes stand.
func (h *Handler) finish(ctx context.Context, r *http.Request, res *CreateResult, ids []primitive.ObjectID, now time.Time) error {
	h.Metrics.PaymentsCreated(len(ids))

	entries, err := h.Ledger.GetMany(ctx, ids, now)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SlotNumber < entries[j].SlotNumber })
	res.Created = entries
	res.CreatedCount = len(entries)

	actor := auth.ActorID(r)
	for _, e := range entries {
		h.AuditLog.Admin(ctx, r, actor, audit.EventPaymentCreated, audit.EntityPayment, e.ID, map[string]string{
			"invoice_number": e.InvoiceNumber,
			"payment_month":  e.PaymentMonth,
			"slot_number":    strconv.Itoa(e.SlotNumber),
			"paid_amount":    e.PaidAmount.Format(),
		})
	}
	return nil
}

// insert allocates an invoice number and writes the entry. A collision on
// the invoice number draws a fresh one; a collision on the slot is returned.
func (h *Handler) insert(ctx context.Context, p models.Payment) (models.Payment, error) {
	var lastErr error
	for attempt := 0; attempt < invoiceAttempts; attempt++ {
		inv, err := h.Counters.NextInvoiceNumber(ctx)
		if err != nil {
			return models.Payment{}, fmt.Errorf("allocate invoice number: %w", err)
		}
		p.InvoiceNumber = inv
		saved, err := h.Payments.Insert(ctx, p)
		if !errors.Is(err, paymentstore.ErrDuplicateInvoice) {
			return saved, err
		}
		h.Log.Warn("invoice number already used; drawing another", zap.String("invoice_number", inv))
		lastErr = err
	}
	return models.Payment{}, lastErr
}
