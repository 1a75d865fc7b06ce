package ledger_test

import (
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/dalemusser/chitfund/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStatusStagesMatchCompute(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	cases := []ledger.Input{
		{PaidAmount: amt("5000"), MonthlyPayable: amt("5000"), Slots: 1, DueDate: future},
		{PaidAmount: amt("2000"), MonthlyPayable: amt("5000"), Slots: 1, DueDate: past},
		{PaidAmount: amt("2000"), MonthlyPayable: amt("5000"), Slots: 1, DueDate: future},
		{PaidAmount: amt("5000"), MonthlyPayable: amt("5000"), Slots: 2, DueDate: future},
		{PaidAmount: amt("5000"), PenaltyAmount: amt("250"), MonthlyPayable: amt("5000"), Slots: 1, DueDate: past},
		{MonthlyPayable: amt("5000"), Slots: 0, DueDate: future},
		{PaidAmount: amt("-10"), MonthlyPayable: amt("0"), Slots: 3, DueDate: past},
		{PaidAmount: amt("4999.99"), PenaltyAmount: amt("-5"), MonthlyPayable: amt("5000"), Slots: 1, DueDate: past},
	}

	coll := db.Collection("stage_check")
	docs := make([]any, len(cases))
	for i, in := range cases {
		docs[i] = bson.M{
			"i":                        i,
			ledger.FieldPaidAmount:     in.PaidAmount,
			ledger.FieldPenaltyAmount:  in.PenaltyAmount,
			ledger.FieldMonthlyPayable: in.MonthlyPayable,
			ledger.FieldSlots:          in.Slots,
			ledger.FieldDueDate:        in.DueDate,
			ledger.FieldStatus:         "unpaid", // stale stored value must be ignored
			ledger.FieldBalanceAmount:  amt("999999"),
		}
	}
	_, err := coll.InsertMany(ctx, docs)
	require.NoError(t, err)

	pipe := mongo.Pipeline{}
	for _, st := range ledger.StatusStages(now) {
		pipe = append(pipe, st)
	}
	pipe = append(pipe, bson.D{{Key: "$sort", Value: bson.D{{Key: "i", Value: 1}}}})
	cur, err := coll.Aggregate(ctx, pipe)
	require.NoError(t, err)

	var rows []struct {
		I             int           `bson:"i"`
		TotalRequired money.Amount  `bson:"total_required"`
		TotalPaid     money.Amount  `bson:"total_paid"`
		BalanceAmount money.Amount  `bson:"balance_amount"`
		Status        ledger.Status `bson:"status"`
	}
	require.NoError(t, cur.All(ctx, &rows))
	require.Len(t, rows, len(cases))

	for _, row := range rows {
		in := cases[row.I]
		in.Now = now
		want := ledger.Compute(in)
		assert.Equal(t, want.Status, row.Status, "case %d status", row.I)
		assert.True(t, want.TotalRequired.Equal(row.TotalRequired.Decimal), "case %d required %s vs %s", row.I, want.TotalRequired.Format(), row.TotalRequired.Format())
		assert.True(t, want.TotalPaid.Equal(row.TotalPaid.Decimal), "case %d paid %s vs %s", row.I, want.TotalPaid.Format(), row.TotalPaid.Format())
		assert.True(t, want.BalanceAmount.Equal(row.BalanceAmount.Decimal), "case %d balance %s vs %s", row.I, want.BalanceAmount.Format(), row.BalanceAmount.Format())
	}
}
