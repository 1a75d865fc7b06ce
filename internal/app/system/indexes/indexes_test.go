package indexes_test

import (
	"testing"

	"github.com/dalemusser/chitfund/internal/app/system/indexes"
	"github.com/dalemusser/chitfund/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bson.M {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	out := map[string]bson.M{}
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			out[name] = idx
		}
	}
	return out
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll  string
		names []string
	}{
		{"payments", []string{indexes.PaymentSlotUnique, indexes.PaymentInvoiceUnique, "idx_payments_created_id", "idx_payments_member_chit_month"}},
		{"chits", []string{"idx_chits_nameci_id", "idx_chits_status_nameci"}},
		{"members", []string{"idx_members_nameci_id", "idx_members_chits_chitid"}},
		{"transactions", []string{indexes.TransactionIDUnique, "idx_transactions_type_date"}},
		{"admins", []string{indexes.AdminEmailUnique}},
		{"otp_codes", []string{indexes.OTPExpiryTTL}},
		{"audit_events", []string{"idx_audit_timestamp"}},
	}
	for _, tt := range tests {
		got := indexNames(t, db, tt.coll)
		for _, name := range tt.names {
			if _, ok := got[name]; !ok {
				t.Errorf("%s: missing index %q", tt.coll, name)
			}
		}
	}

	otp := indexNames(t, db, "otp_codes")[indexes.OTPExpiryTTL]
	if _, ok := otp["expireAfterSeconds"]; !ok {
		t.Error("otp expiry index should be a TTL index")
	}
}

func TestEnsureAll_SlotUniquenessEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	chitID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	doc := func(invoice string) bson.M {
		return bson.M{
			"chit_id": chitID, "member_id": memberID,
			"payment_month": "2025-03", "slot_number": 1,
			"invoice_number": invoice,
		}
	}
	payments := db.Collection("payments")
	if _, err := payments.InsertOne(ctx, doc("INV-000001")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := payments.InsertOne(ctx, doc("INV-000002"))
	if !wafflemongo.IsDup(err) {
		t.Errorf("second insert for same slot: err = %v, want duplicate key", err)
	}
}

func TestEnsureAll_ReplacesIndexWithWrongOptions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// same keys as the unique slot index, but not unique and differently named
	_, err := db.Collection("payments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "chit_id", Value: 1},
			{Key: "member_id", Value: 1},
			{Key: "payment_month", Value: 1},
			{Key: "slot_number", Value: 1},
		},
		Options: options.Index().SetName("legacy_slot_idx"),
	})
	if err != nil {
		t.Fatalf("seed legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db, "payments")
	if _, ok := got["legacy_slot_idx"]; ok {
		t.Error("legacy index should have been dropped")
	}
	idx, ok := got[indexes.PaymentSlotUnique]
	if !ok {
		t.Fatal("unique slot index missing")
	}
	if u, _ := idx["unique"].(bool); !u {
		t.Error("slot index should be unique")
	}
}
