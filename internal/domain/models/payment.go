// internal/domain/models/payment.go
package models

import (
	"time"

	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment modes.
const (
	PaymentModeCash   = "cash"
	PaymentModeOnline = "online"
)

// Payment is one ledger entry: money received for a single slot of a member
// in a chit for one month. At most one entry exists per
// (chit_id, member_id, payment_month, slot_number); a unique index enforces it.
//
// Status, balance and total paid are derived on read and are not stored.
type Payment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChitID           primitive.ObjectID `bson:"chit_id" json:"chitId"`
	MemberID         primitive.ObjectID `bson:"member_id" json:"memberId"`         // non-owning; member may be deleted
	PaymentMonth     string             `bson:"payment_month" json:"paymentMonth"` // YYYY-MM
	PaymentYear      int                `bson:"payment_year" json:"paymentYear"`
	SlotNumber       int                `bson:"slot_number" json:"slotNumber"`
	PaidAmount       money.Amount       `bson:"paid_amount" json:"paidAmount"`
	PenaltyAmount    money.Amount       `bson:"penalty_amount" json:"penaltyAmount"`
	InterestPercent  money.Amount       `bson:"interest_percent" json:"interestPercent"` // surcharge %, same decimal encoding
	InterestAmount   money.Amount       `bson:"interest_amount" json:"interestAmount"`
	PaymentDate      time.Time          `bson:"payment_date" json:"paymentDate"`
	DueDate          time.Time          `bson:"due_date" json:"dueDate"`
	PaymentMode      string             `bson:"payment_mode" json:"paymentMode"` // cash | online
	InvoiceNumber    string             `bson:"invoice_number" json:"invoiceNumber"`
	IsAdminConfirmed bool               `bson:"is_admin_confirmed" json:"isAdminConfirmed"`
	ConfirmedAt      *time.Time         `bson:"confirmed_at,omitempty" json:"confirmedAt,omitempty"`
	Remarks          string             `bson:"remarks,omitempty" json:"remarks,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
