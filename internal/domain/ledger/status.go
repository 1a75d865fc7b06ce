// Package ledger derives the lifecycle fields of a chit payment entry from the
// raw amounts stored for it and the contractual terms of its chit.
//
// Everything here is pure: no clock, no database. Callers pass "now".
package ledger

import (
	"strings"
	"time"

	"github.com/dalemusser/chitfund/internal/domain/money"
)

// Status is the derived lifecycle state of a payment entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// legacyUnpaid is the name older service code stored for StatusPending.
const legacyUnpaid = "unpaid"

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusPartial, StatusPaid, StatusOverdue}

// ParseStatus maps a user or stored value onto the canonical enum.
// "unpaid" is read as pending. The bool is false for unknown values.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusPending), legacyUnpaid:
		return StatusPending, true
	case string(StatusPartial):
		return StatusPartial, true
	case string(StatusPaid):
		return StatusPaid, true
	case string(StatusOverdue):
		return StatusOverdue, true
	}
	return "", false
}

// Input carries the raw values the status of one entry depends on.
type Input struct {
	PaidAmount     money.Amount
	PenaltyAmount  money.Amount
	MonthlyPayable money.Amount // per-slot installment of the chit
	Slots          int          // member's slot count in the chit; <1 means 1
	DueDate        time.Time
	Now            time.Time
}

// Result holds the derived fields.
type Result struct {
	TotalRequired money.Amount `json:"totalRequired"`
	TotalPaid     money.Amount `json:"totalPaid"`
	BalanceAmount money.Amount `json:"balanceAmount"`
	Status        Status       `json:"status"`
}

// Compute derives totals and status for one entry.
//
// Check order matters: a fully paid entry is paid even when late, and a
// partially paid entry past its due date is overdue rather than partial.
// Penalty never counts toward the installment.
func Compute(in Input) Result {
	paid := in.PaidAmount.NonNegative()
	penalty := in.PenaltyAmount.NonNegative()
	required := in.MonthlyPayable.NonNegative().MulInt(NormalizeSlots(in.Slots))

	res := Result{
		TotalRequired: required,
		TotalPaid:     paid.Add(penalty),
		BalanceAmount: money.Max(required.Sub(paid), money.Zero),
	}

	switch {
	case paid.GreaterThanOrEqual(required.Decimal):
		res.Status = StatusPaid
	case in.DueDate.Before(in.Now):
		res.Status = StatusOverdue
	case paid.IsPositive():
		res.Status = StatusPartial
	default:
		res.Status = StatusPending
	}
	return res
}

// NormalizeSlots applies the default of one slot.
func NormalizeSlots(slots int) int {
	if slots < 1 {
		return 1
	}
	return slots
}
