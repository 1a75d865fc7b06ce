// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown drains queued notifications, stops the rate limiter sweeper and
// disconnects from MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.Services; svc != nil {
		if svc.Notifier != nil {
			if err := svc.Notifier.Stop(ctx); err != nil {
				logger.Warn("notification queue not drained", zap.Error(err))
			}
		}
		if svc.Limiter != nil {
			svc.Limiter.Stop()
		}
	}

	if deps.ChitFundMongoClient != nil {
		logger.Info("disconnecting ChitFund MongoDB client")
		if err := deps.ChitFundMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
