// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/mailer"
	"github.com/dalemusser/chitfund/internal/app/system/metrics"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"github.com/dalemusser/chitfund/internal/app/system/pdfdoc"
	"github.com/dalemusser/chitfund/internal/app/system/ratelimit"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// applies timeout tiers, bootstraps the administrator and starts the
// notification workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Services == nil {
		return errors.New("startup: DBDeps.Services not allocated")
	}

	timeouts.Configure(timeouts.Config{Aggregate: appCfg.AggregateMaxTime})
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	if err := ensureAdmin(ctx, deps, appCfg, logger); err != nil {
		return err
	}

	db := deps.ChitFundMongoDatabase
	svc := deps.Services

	svc.Metrics = metrics.New()

	mail := mailer.New(mailer.Config{
		Host:              appCfg.MailSMTPHost,
		Port:              appCfg.MailSMTPPort,
		User:              appCfg.MailSMTPUser,
		Pass:              appCfg.MailSMTPPass,
		From:              appCfg.MailFrom,
		FromName:          appCfg.MailFromName,
		OAuthClientID:     appCfg.MailOAuthClientID,
		OAuthClientSecret: appCfg.MailOAuthClientSecret,
		OAuthRefreshToken: appCfg.MailOAuthRefreshToken,
	}, logger)

	svc.Notifier = workers.NewNotifier(logger, svc.Metrics, appCfg.NotifyWorkers, appCfg.NotifyQueueSize, timeouts.Long())
	svc.Notifier.Start()

	svc.Notices = notices.New(mail, svc.Notifier, pdfdoc.Letterhead{
		CompanyName:    appCfg.CompanyName,
		CompanyAddress: appCfg.CompanyAddress,
	}, logger)

	svc.AuditLog = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	svc.Limiter = ratelimit.NewAuthLimiter()
	svc.Ledger = ledgerqueries.New(db, svc.Metrics, logger)

	logger.Info("startup complete",
		zap.Bool("mail_enabled", mail.Enabled()),
		zap.Bool("mail_oauth", appCfg.oauthFieldsSet() == 3),
		zap.Int("notify_workers", appCfg.NotifyWorkers),
		zap.Duration("aggregate_max_time", timeouts.Aggregate()))
	return nil
}

// ensureAdmin creates the configured administrator when it does not exist
// yet. Without admin_email nothing is created; an existing account keeps
// its current password.
func ensureAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		logger.Warn("admin_email not set; no administrator bootstrapped")
		return nil
	}

	actx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	created, err := adminstore.New(deps.ChitFundMongoDatabase).
		EnsureBootstrap(actx, appCfg.AdminEmail, appCfg.AdminName, appCfg.AdminPassword)
	if err != nil {
		logger.Error("admin bootstrap failed", zap.String("email", appCfg.AdminEmail), zap.Error(err))
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("administrator created", zap.String("email", appCfg.AdminEmail))
	}
	return nil
}
