// Package metricsstore computes the headline numbers for the admin dashboard.
package metricsstore

import (
	"context"
	"fmt"
	"time"

	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	memberstore "github.com/dalemusser/chitfund/internal/app/store/members"
	paymentstore "github.com/dalemusser/chitfund/internal/app/store/payments"
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Counts is the set of totals shown on the dashboard.
type Counts struct {
	Month                string                      `json:"month"`
	ChitsByStatus        map[ledger.ChitStatus]int64 `json:"chitsByStatus"`
	TotalChits           int64                       `json:"totalChits"`
	ActiveMembers        int64                       `json:"activeMembers"`
	CollectedThisMonth   money.Amount                `json:"collectedThisMonth"`
	PendingConfirmations int64                       `json:"pendingConfirmations"`
	OverdueThisMonth     int64                       `json:"overdueThisMonth"`
}

// FetchDashboardCounts runs every count concurrently. The first failure
// cancels the rest and is returned.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database, lq *ledgerqueries.Service, now time.Time) (Counts, error) {
	out := Counts{Month: ledger.Month(now)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		byStatus, err := chitstore.New(db).CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("chits by status: %w", err)
		}
		out.ChitsByStatus = byStatus
		for _, n := range byStatus {
			out.TotalChits += n
		}
		return nil
	})
	g.Go(func() error {
		n, err := memberstore.New(db).CountByStatus(gctx, models.MemberActive)
		if err != nil {
			return fmt.Errorf("active members: %w", err)
		}
		out.ActiveMembers = n
		return nil
	})
	g.Go(func() error {
		amt, err := paymentstore.New(db).CollectedForMonth(gctx, out.Month)
		if err != nil {
			return fmt.Errorf("collected: %w", err)
		}
		out.CollectedThisMonth = amt
		return nil
	})
	g.Go(func() error {
		n, err := paymentstore.New(db).CountUnconfirmed(gctx)
		if err != nil {
			return fmt.Errorf("unconfirmed: %w", err)
		}
		out.PendingConfirmations = n
		return nil
	})
	g.Go(func() error {
		n, err := lq.Count(gctx, ledgerqueries.Filter{Month: out.Month, Status: ledger.StatusOverdue}, now)
		if err != nil {
			return fmt.Errorf("overdue: %w", err)
		}
		out.OverdueThisMonth = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return out, nil
}
