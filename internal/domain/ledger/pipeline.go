package ledger

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Document fields the aggregation form of Compute reads. Callers put the
// chit's per-slot installment and the member's slot count on each entry
// before appending StatusStages.
const (
	FieldPaidAmount     = "paid_amount"
	FieldPenaltyAmount  = "penalty_amount"
	FieldMonthlyPayable = "monthly_payable"
	FieldSlots          = "slots"
	FieldDueDate        = "due_date"
)

// Output fields written by StatusStages.
const (
	FieldTotalRequired = "total_required"
	FieldTotalPaid     = "total_paid"
	FieldBalanceAmount = "balance_amount"
	FieldStatus        = "status"
)

// nonNegDecimal converts a stored amount of any numeric BSON type to
// Decimal128, treating missing values as zero and clamping negatives.
func nonNegDecimal(field string) bson.D {
	return bson.D{{Key: "$max", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{bson.D{{Key: "$toDecimal", Value: "$" + field}}, zeroDecimal()}}},
		zeroDecimal(),
	}}}
}

func zeroDecimal() bson.D {
	return bson.D{{Key: "$toDecimal", Value: 0}}
}

// StatusStages is the aggregation equivalent of Compute. Both are kept in
// step by TestStatusStagesMatchCompute; any stored status, balance or total
// on the document is overwritten.
func StatusStages(now time.Time) []bson.D {
	slots := bson.D{{Key: "$max", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$" + FieldSlots, 1}}},
		1,
	}}}

	normalize := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "_paid", Value: nonNegDecimal(FieldPaidAmount)},
		{Key: "_penalty", Value: nonNegDecimal(FieldPenaltyAmount)},
		{Key: "_required", Value: bson.D{{Key: "$multiply", Value: bson.A{nonNegDecimal(FieldMonthlyPayable), slots}}}},
	}}}

	derive := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: FieldTotalRequired, Value: "$_required"},
		{Key: FieldTotalPaid, Value: bson.D{{Key: "$add", Value: bson.A{"$_paid", "$_penalty"}}}},
		{Key: FieldBalanceAmount, Value: bson.D{{Key: "$max", Value: bson.A{
			bson.D{{Key: "$subtract", Value: bson.A{"$_required", "$_paid"}}},
			zeroDecimal(),
		}}}},
		{Key: FieldStatus, Value: bson.D{{Key: "$switch", Value: bson.D{
			{Key: "branches", Value: bson.A{
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{"$_paid", "$_required"}}}},
					{Key: "then", Value: string(StatusPaid)},
				},
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$lt", Value: bson.A{"$" + FieldDueDate, now}}}},
					{Key: "then", Value: string(StatusOverdue)},
				},
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$gt", Value: bson.A{"$_paid", zeroDecimal()}}}},
					{Key: "then", Value: string(StatusPartial)},
				},
			}},
			{Key: "default", Value: string(StatusPending)},
		}}}},
	}}}

	cleanup := bson.D{{Key: "$project", Value: bson.D{
		{Key: "_paid", Value: 0},
		{Key: "_penalty", Value: 0},
		{Key: "_required", Value: 0},
	}}}

	return []bson.D{normalize, derive, cleanup}
}
