// internal/domain/models/chit.go
package models

import (
	"time"

	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chit is a rotating savings scheme.
//
// EnrolledCount mirrors the number of members assigned to the chit and is the
// field the capacity check increments atomically; it is never set by clients.
type Chit struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	NameCI               string             `bson:"name_ci" json:"-"` // folded for search/sort
	Location             string             `bson:"location,omitempty" json:"location,omitempty"`
	Amount               money.Amount       `bson:"amount" json:"amount"`                               // total pot
	MonthlyPayableAmount money.Amount       `bson:"monthly_payable_amount" json:"monthlyPayableAmount"` // per slot
	Duration             int                `bson:"duration" json:"duration"`                           // months
	MembersLimit         int                `bson:"members_limit" json:"membersLimit"`
	EnrolledCount        int                `bson:"enrolled_count" json:"enrolledCount"`
	StartDate            time.Time          `bson:"start_date" json:"startDate"`
	CycleDay             int                `bson:"cycle_day" json:"cycleDay"` // due day of month, 1..31
	Status               ledger.ChitStatus  `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
