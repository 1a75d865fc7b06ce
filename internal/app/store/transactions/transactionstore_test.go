package transactionstore_test

import (
	"errors"
	"testing"
	"time"

	transactionstore "github.com/dalemusser/chitfund/internal/app/store/transactions"
	"github.com/dalemusser/chitfund/internal/app/system/indexes"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	s := transactionstore.New(db)

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	chit := primitive.NewObjectID()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	pay, err := s.Create(ctx, models.Transaction{
		TransactionID: "TRN001", Type: models.TransactionTypePayment,
		Amount: money.MustParse("5000"), Date: day,
		MemberID: &alice, ChitID: &chit, PaymentMode: models.PaymentModeCash,
	})
	if err != nil {
		t.Fatalf("Create payment txn: %v", err)
	}
	if _, err := s.Create(ctx, models.Transaction{
		TransactionID: "TRN002", Type: models.TransactionTypeTransfer,
		Amount: money.MustParse("1000"), Date: day.AddDate(0, 0, 1),
		FromMemberID: &alice, ToMemberID: &bob, FromChitID: &chit, ToChitID: &chit,
	}); err != nil {
		t.Fatalf("Create transfer: %v", err)
	}

	_, err = s.Create(ctx, models.Transaction{TransactionID: "TRN001", Type: models.TransactionTypePayment, Amount: money.Zero, Date: day})
	if !errors.Is(err, transactionstore.ErrDuplicateTxID) {
		t.Errorf("dup err = %v, want ErrDuplicateTxID", err)
	}

	items, total, err := s.List(ctx, transactionstore.ListFilter{MemberID: &bob}, paging.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || items[0].TransactionID != "TRN002" {
		t.Errorf("bob's transactions = %d %+v", total, items)
	}

	items, total, err = s.List(ctx, transactionstore.ListFilter{MemberID: &alice}, paging.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || items[0].TransactionID != "TRN002" {
		t.Errorf("alice's transactions should be newest first: %d %+v", total, items)
	}

	got, err := s.GetByID(ctx, pay.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.MemberID == nil || *got.MemberID != alice {
		t.Errorf("MemberID = %v", got.MemberID)
	}
}
