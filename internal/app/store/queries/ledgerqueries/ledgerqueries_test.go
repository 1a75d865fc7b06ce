package ledgerqueries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type world struct {
	svc    *ledgerqueries.Service
	fx     *testutil.Fixtures
	chit   models.Chit
	single models.Member // one slot
	double models.Member // two slots
}

func setup(t *testing.T, ctx context.Context) world {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	chit := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{MonthlyPayable: "5000"})
	return world{
		svc:    ledgerqueries.New(db, nil, zap.NewNop()),
		fx:     fx,
		chit:   chit,
		single: fx.CreateMember(ctx, "Single", testutil.Enroll{ChitID: chit.ID, Slots: 1}),
		double: fx.CreateMember(ctx, "Double", testutil.Enroll{ChitID: chit.ID, Slots: 2}),
	}
}

func TestGet_EnrichedStatus(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	yesterday := now.Add(-24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	tests := []struct {
		name        string
		member      models.Member
		opts        testutil.PaymentOpts
		wantStatus  ledger.Status
		wantBalance string
		wantTotal   string
	}{
		{"fully paid", w.single, testutil.PaymentOpts{Month: "2025-01", Paid: "5000", DueDate: nextWeek}, ledger.StatusPaid, "0.00", "5000.00"},
		{"partial past due is overdue", w.single, testutil.PaymentOpts{Month: "2025-02", Paid: "2000", DueDate: yesterday}, ledger.StatusOverdue, "3000.00", "2000.00"},
		{"partial before due date", w.single, testutil.PaymentOpts{Month: "2025-03", Paid: "2000", DueDate: nextWeek}, ledger.StatusPartial, "3000.00", "2000.00"},
		{"two slots half paid", w.double, testutil.PaymentOpts{Month: "2025-03", Paid: "5000", DueDate: nextWeek}, ledger.StatusPartial, "5000.00", "5000.00"},
		{"stale stored status ignored", w.single, testutil.PaymentOpts{Month: "2025-04", Paid: "5000", DueDate: yesterday, RawStatus: "unpaid", RawBalance: "5000"}, ledger.StatusPaid, "0.00", "5000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := w.fx.CreatePayment(ctx, w.chit.ID, tt.member.ID, tt.opts)
			got, err := w.svc.Get(ctx, p.ID, now)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.PipelineStatus != tt.wantStatus {
				t.Errorf("PipelineStatus = %q, want %q", got.PipelineStatus, tt.wantStatus)
			}
			if got.BalanceAmount.Format() != tt.wantBalance {
				t.Errorf("BalanceAmount = %s, want %s", got.BalanceAmount.Format(), tt.wantBalance)
			}
			if got.TotalPaid.Format() != tt.wantTotal {
				t.Errorf("TotalPaid = %s, want %s", got.TotalPaid.Format(), tt.wantTotal)
			}
			if got.ChitName != "Gold" || got.MemberName != tt.member.Name {
				t.Errorf("names = %q / %q", got.ChitName, got.MemberName)
			}
		})
	}

	if _, err := w.svc.Get(ctx, primitive.NewObjectID(), now); !errors.Is(err, ledgerqueries.ErrNotFound) {
		t.Errorf("missing entry err = %v, want ErrNotFound", err)
	}
}

func TestGet_DeletedReferences(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	p := w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{Paid: "5000"})
	if _, err := w.fx.DB().Collection("members").DeleteOne(ctx, bson.M{"_id": w.single.ID}); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	got, err := w.svc.Get(ctx, p.ID, now)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MemberName != ledgerqueries.DeletedMember || !got.MemberDeleted {
		t.Errorf("member = %q deleted=%v", got.MemberName, got.MemberDeleted)
	}
	if got.Slots != 1 {
		t.Errorf("Slots = %d, want default 1", got.Slots)
	}

	if _, err := w.fx.DB().Collection("chits").DeleteOne(ctx, bson.M{"_id": w.chit.ID}); err != nil {
		t.Fatalf("delete chit: %v", err)
	}
	got, err = w.svc.Get(ctx, p.ID, now)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ChitName != ledgerqueries.DeletedChit || !got.ChitDeleted {
		t.Errorf("chit = %q deleted=%v", got.ChitName, got.ChitDeleted)
	}
	// no installment known: any payment satisfies it
	if got.Status != ledger.StatusPaid {
		t.Errorf("Status = %q, want paid", got.Status)
	}
}

func TestList_PaginationAndOrder(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{
			Month:     time.Date(2023, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			Paid:      "5000",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	page, err := w.svc.List(ctx, ledgerqueries.Filter{}, paging.Params{Page: 1, Limit: 10}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 10 {
		t.Errorf("items = %d, want 10", len(page.Items))
	}
	if page.Pagination.TotalItems != 25 || page.Pagination.TotalPages != 3 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].CreatedAt.After(page.Items[i-1].CreatedAt) {
			t.Fatalf("items not newest first at %d", i)
		}
	}

	last, err := w.svc.List(ctx, ledgerqueries.Filter{}, paging.Params{Page: 3, Limit: 10}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(last.Items) != 5 {
		t.Errorf("last page items = %d, want 5", len(last.Items))
	}
}

func TestList_FilterByDerivedStatus(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)
	w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{Month: "2025-01", Paid: "5000", DueDate: past})
	w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{Month: "2025-02", Paid: "1000", DueDate: past, RawStatus: "paid"})
	w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{Month: "2025-03", Paid: "1000", DueDate: future})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-03", Paid: "0", DueDate: future, Mode: models.PaymentModeOnline})

	tests := []struct {
		name   string
		filter ledgerqueries.Filter
		want   int64
	}{
		{"overdue ignores stale stored paid", ledgerqueries.Filter{Status: ledger.StatusOverdue}, 1},
		{"paid", ledgerqueries.Filter{Status: ledger.StatusPaid}, 1},
		{"partial", ledgerqueries.Filter{Status: ledger.StatusPartial}, 1},
		{"pending", ledgerqueries.Filter{Status: ledger.StatusPending}, 1},
		{"by member", ledgerqueries.Filter{MemberID: &w.double.ID}, 1},
		{"by mode", ledgerqueries.Filter{PaymentMode: models.PaymentModeCash}, 3},
		{"by month and status", ledgerqueries.Filter{Month: "2025-03", Status: ledger.StatusPartial}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := w.svc.List(ctx, tt.filter, paging.Params{}, now)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if page.Pagination.TotalItems != tt.want || int64(len(page.Items)) != tt.want {
				t.Errorf("total=%d items=%d, want %d", page.Pagination.TotalItems, len(page.Items), tt.want)
			}
			for _, it := range page.Items {
				if tt.filter.Status != "" && it.Status != tt.filter.Status {
					t.Errorf("item status %q does not match filter %q", it.Status, tt.filter.Status)
				}
			}

			n, err := w.svc.Count(ctx, tt.filter, now)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestList_PaidSlotsCount(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-03", Slot: 1, Paid: "5000"})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-03", Slot: 2, Paid: "5000"})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-04", Slot: 1, Paid: "5000"})

	page, err := w.svc.List(ctx, ledgerqueries.Filter{Month: "2025-03"}, paging.Params{}, now)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, it := range page.Items {
		if it.PaidSlotsCount != 2 {
			t.Errorf("slot %d PaidSlotsCount = %d, want 2", it.SlotNumber, it.PaidSlotsCount)
		}
		if it.Slots != 2 {
			t.Errorf("Slots = %d, want 2", it.Slots)
		}
	}
}

func TestHistory_MonthSummaries(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	future := now.AddDate(0, 0, 5)
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-03", Slot: 2, Paid: "5000", DueDate: future})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-02", Slot: 1, Paid: "5000", Penalty: "100"})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-02", Slot: 2, Paid: "5000"})
	// another chit's entry must not appear
	w.fx.CreatePayment(ctx, primitive.NewObjectID(), w.double.ID, testutil.PaymentOpts{Month: "2025-02"})

	h, err := w.svc.History(ctx, w.double.ID, w.chit.ID, now)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(h.Entries))
	}
	if h.Entries[0].PaymentMonth != "2025-02" || h.Entries[2].PaymentMonth != "2025-03" {
		t.Errorf("entries not oldest month first: %s .. %s", h.Entries[0].PaymentMonth, h.Entries[2].PaymentMonth)
	}
	if h.MemberName != "Double" || h.ChitName != "Gold" {
		t.Errorf("names = %q / %q", h.MemberName, h.ChitName)
	}
	if len(h.Months) != 2 {
		t.Fatalf("months = %d, want 2", len(h.Months))
	}

	feb := h.Months[0]
	if feb.Month != "2025-02" || feb.Status != ledger.StatusPaid || feb.TotalRequired.Format() != "10000.00" || feb.TotalPaid.Format() != "10100.00" {
		t.Errorf("feb = %+v", feb)
	}
	mar := h.Months[1]
	if mar.Status != ledger.StatusPartial || mar.BalanceAmount.Format() != "5000.00" || mar.EntryCount != 1 {
		t.Errorf("mar = %+v", mar)
	}
}

func TestExport_RespectsFilters(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	w := setup(t, ctx)

	w.fx.CreatePayment(ctx, w.chit.ID, w.single.ID, testutil.PaymentOpts{Month: "2025-01", Paid: "5000"})
	w.fx.CreatePayment(ctx, w.chit.ID, w.double.ID, testutil.PaymentOpts{Month: "2025-01", Paid: "5000"})

	rows, err := w.svc.Export(ctx, ledgerqueries.Filter{ChitID: &w.chit.ID, Status: ledger.StatusPaid}, now)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(rows) != 1 || rows[0].MemberID != w.single.ID {
		t.Errorf("export rows = %+v", rows)
	}
}
