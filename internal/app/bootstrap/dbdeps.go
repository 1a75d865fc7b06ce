// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/metrics"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"github.com/dalemusser/chitfund/internal/app/system/ratelimit"
	"github.com/dalemusser/chitfund/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	ChitFundMongoClient   *mongo.Client
	ChitFundMongoDatabase *mongo.Database

	// Services is allocated by ConnectDB and filled in by Startup. Hooks
	// receive DBDeps by value, so the shared pointer carries what Startup
	// builds through to BuildHandler and Shutdown.
	Services *Services
}

// Services are the long-lived collaborators shared by every feature.
type Services struct {
	Metrics  *metrics.Metrics
	Notifier *workers.Notifier
	Notices  *notices.Notices
	AuditLog *auditlog.Logger
	Limiter  *ratelimit.AuthLimiter
	Ledger   *ledgerqueries.Service
}
