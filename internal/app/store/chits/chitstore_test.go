package chitstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newChit(name string, limit int, start time.Time) models.Chit {
	return models.Chit{
		Name:                 name,
		Amount:               money.MustParse("100000"),
		MonthlyPayableAmount: money.MustParse("5000"),
		Duration:             20,
		MembersLimit:         limit,
		StartDate:            start,
		CycleDay:             10,
	}
}

func TestCreate_ComputesStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := chitstore.New(db)

	future, err := s.Create(ctx, newChit("Future", 10, time.Now().AddDate(0, 2, 0)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if future.Status != ledger.ChitUpcoming {
		t.Errorf("future chit status = %q, want Upcoming", future.Status)
	}

	past, err := s.Create(ctx, newChit("Past", 10, time.Now().AddDate(0, -2, 0)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if past.Status != ledger.ChitOngoing {
		t.Errorf("started chit status = %q, want Ongoing", past.Status)
	}

	closed := newChit("Closed", 10, time.Now().AddDate(0, 2, 0))
	closed.Status = ledger.ChitClosed
	got, err := s.Create(ctx, closed)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Status != ledger.ChitClosed {
		t.Errorf("closed status should stick, got %q", got.Status)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := chitstore.New(db).GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, chitstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReserve_StopsAtLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := chitstore.New(db)

	c, err := s.Create(ctx, newChit("Small", 2, time.Now()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Reserve(ctx, c.ID); err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
	}
	if err := s.Reserve(ctx, c.ID); !errors.Is(err, chitstore.ErrChitFull) {
		t.Errorf("third Reserve err = %v, want ErrChitFull", err)
	}
	if err := s.Reserve(ctx, primitive.NewObjectID()); !errors.Is(err, chitstore.ErrNotFound) {
		t.Errorf("Reserve on missing chit err = %v, want ErrNotFound", err)
	}

	if err := s.Release(ctx, c.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, _ := s.GetByID(ctx, c.ID)
	if got.EnrolledCount != 1 {
		t.Errorf("EnrolledCount = %d, want 1", got.EnrolledCount)
	}
}

func TestReserve_ConcurrentNeverOvershoots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := chitstore.New(db)

	c, err := s.Create(ctx, newChit("Race", 5, time.Now()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Reserve(ctx, c.ID) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 5 {
		t.Errorf("successful reservations = %d, want 5", ok)
	}
	got, _ := s.GetByID(ctx, c.ID)
	if got.EnrolledCount != 5 {
		t.Errorf("EnrolledCount = %d, want 5", got.EnrolledCount)
	}
}

func TestUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := chitstore.New(db)

	c, err := s.Create(ctx, newChit("Gold", 3, time.Now().AddDate(0, 1, 0)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = s.Reserve(ctx, c.ID)
	_ = s.Reserve(ctx, c.ID)

	t.Run("limit below enrolled rejected", func(t *testing.T) {
		limit := 1
		_, err := s.Update(ctx, c.ID, chitstore.Update{MembersLimit: &limit})
		if !errors.Is(err, chitstore.ErrLimitBelowEnrolled) {
			t.Errorf("err = %v, want ErrLimitBelowEnrolled", err)
		}
	})

	t.Run("start date moves status", func(t *testing.T) {
		start := time.Now().AddDate(0, -1, 0)
		name := "Gold Plus"
		got, err := s.Update(ctx, c.ID, chitstore.Update{StartDate: &start, Name: &name})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Status != ledger.ChitOngoing {
			t.Errorf("Status = %q, want Ongoing", got.Status)
		}
		if got.NameCI != "gold plus" {
			t.Errorf("NameCI = %q", got.NameCI)
		}
	})

	t.Run("completed is sticky", func(t *testing.T) {
		done := ledger.ChitCompleted
		if _, err := s.Update(ctx, c.ID, chitstore.Update{Status: &done}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		start := time.Now().AddDate(1, 0, 0)
		got, err := s.Update(ctx, c.ID, chitstore.Update{StartDate: &start})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Status != ledger.ChitCompleted {
			t.Errorf("Status = %q, want Completed", got.Status)
		}
	})
}

func TestList_SearchAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := chitstore.New(db)

	for _, n := range []string{"Alpha", "Beta", "Gamma", "Alpine"} {
		if _, err := s.Create(ctx, newChit(n, 10, time.Now())); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := s.List(ctx, chitstore.ListFilter{Search: "ALP"}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("search total=%d len=%d, want 2/2", total, len(items))
	}
	if items[0].Name != "Alpha" {
		t.Errorf("first = %q, want Alpha", items[0].Name)
	}

	items, total, err = s.List(ctx, chitstore.ListFilter{}, paging.Params{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 || len(items) != 1 {
		t.Errorf("page 2 total=%d len=%d, want 4/1", total, len(items))
	}
}
