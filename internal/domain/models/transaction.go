// internal/domain/models/transaction.go
package models

import (
	"time"

	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types.
const (
	TransactionTypePayment  = "transaction"
	TransactionTypeTransfer = "transfer"
)

// Transaction is a lightweight ledger record. A "transaction" carries
// MemberID/ChitID/PaymentMode; a "transfer" carries the From*/To* fields.
// The two field sets never mix.
type Transaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TransactionID string             `bson:"transaction_id" json:"transactionId"` // TRN001, TRN002, ...
	Type          string             `bson:"type" json:"type"`
	Amount        money.Amount       `bson:"amount" json:"amount"`
	Date          time.Time          `bson:"date" json:"date"`
	Remarks       string             `bson:"remarks,omitempty" json:"remarks,omitempty"`

	MemberID    *primitive.ObjectID `bson:"member_id,omitempty" json:"memberId,omitempty"`
	ChitID      *primitive.ObjectID `bson:"chit_id,omitempty" json:"chitId,omitempty"`
	PaymentMode string              `bson:"payment_mode,omitempty" json:"paymentMode,omitempty"`

	FromMemberID *primitive.ObjectID `bson:"from_member_id,omitempty" json:"fromMemberId,omitempty"`
	ToMemberID   *primitive.ObjectID `bson:"to_member_id,omitempty" json:"toMemberId,omitempty"`
	FromChitID   *primitive.ObjectID `bson:"from_chit_id,omitempty" json:"fromChitId,omitempty"`
	ToChitID     *primitive.ObjectID `bson:"to_chit_id,omitempty" json:"toChitId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
