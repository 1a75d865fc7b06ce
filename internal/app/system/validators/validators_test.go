package validators_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/validators"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_CreatesEveryCollectionTwice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for run := 1; run <= 2; run++ {
		if err := validators.EnsureAll(ctx, db); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"chits", "members", "payments", "transactions", "admins", "counters", "otp_codes", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %q not created", want)
		}
	}
}

func TestPaymentsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	valid := func() bson.M {
		return bson.M{
			"chit_id":            primitive.NewObjectID(),
			"member_id":          primitive.NewObjectID(),
			"payment_month":      "2025-03",
			"slot_number":        1,
			"paid_amount":        5000,
			"penalty_amount":     0,
			"payment_mode":       "cash",
			"invoice_number":     "INV-000001",
			"is_admin_confirmed": false,
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"missing invoice", func(d bson.M) { delete(d, "invoice_number") }, true},
		{"bad month", func(d bson.M) { d["payment_month"] = "2025-13" }, true},
		{"slot zero", func(d bson.M) { d["slot_number"] = 0 }, true},
		{"negative paid", func(d bson.M) { d["paid_amount"] = -1 }, true},
		{"unknown mode", func(d bson.M) { d["payment_mode"] = "cheque" }, true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			doc["invoice_number"] = fmt.Sprintf("INV-%06d", i+1)
			tt.mutate(doc)
			_, err := db.Collection("payments").InsertOne(ctx, doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChitsValidator_CycleDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	doc := bson.M{
		"name": "Gold", "name_ci": "gold",
		"amount": 100000, "monthly_payable_amount": 5000,
		"members_limit": 20, "start_date": time.Now(),
		"cycle_day": 32, "status": "Upcoming",
	}
	if _, err := db.Collection("chits").InsertOne(ctx, doc); err == nil {
		t.Error("expected cycle_day 32 to be rejected")
	}
	doc["cycle_day"] = 5
	if _, err := db.Collection("chits").InsertOne(ctx, doc); err != nil {
		t.Errorf("valid chit rejected: %v", err)
	}
}

func TestTransactionsValidator_FieldSetsExclusive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("transactions")

	_, err := coll.InsertOne(ctx, bson.M{
		"transaction_id": "TRN001", "type": "transaction", "amount": 100, "date": time.Now(),
		"member_id": primitive.NewObjectID(), "chit_id": primitive.NewObjectID(),
	})
	if err != nil {
		t.Errorf("valid transaction rejected: %v", err)
	}

	_, err = coll.InsertOne(ctx, bson.M{
		"transaction_id": "TRN002", "type": "transfer", "amount": 100, "date": time.Now(),
		"from_member_id": primitive.NewObjectID(), "to_member_id": primitive.NewObjectID(),
		"member_id": primitive.NewObjectID(),
	})
	if err == nil {
		t.Error("transfer carrying member_id should be rejected")
	}
}
