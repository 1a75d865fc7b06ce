// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/chitfund/internal/app/store/metrics"
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// recentLimit is how many of the latest entries the summary carries.
const recentLimit = 5

type Handler struct {
	DB     *mongo.Database
	Ledger *ledgerqueries.Service
	Log    *zap.Logger

	Now func() time.Time
}

func NewHandler(db *mongo.Database, ledger *ledgerqueries.Service, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Ledger: ledger,
		Log:    logger,
		Now:    time.Now,
	}
}

// Summary is the dashboard payload.
type Summary struct {
	metricsstore.Counts
	RecentPayments []ledgerqueries.Entry `json:"recentPayments"`
}

// ServeDashboard returns the headline counts for the current month and the
// latest ledger entries.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard")
	defer cancel()

	counts, err := metricsstore.FetchDashboardCounts(ctx, h.DB, h.Ledger, now)
	if err != nil {
		h.Log.Error("dashboard counts", zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}
	recent, err := h.Ledger.List(ctx, ledgerqueries.Filter{}, paging.Params{Page: 1, Limit: recentLimit}, now)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", Summary{Counts: counts, RecentPayments: recent.Items})
}
