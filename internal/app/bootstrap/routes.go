// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/chitfund/internal/app/features/auditlog"
	chitsfeature "github.com/dalemusser/chitfund/internal/app/features/chits"
	dashboardfeature "github.com/dalemusser/chitfund/internal/app/features/dashboard"
	healthfeature "github.com/dalemusser/chitfund/internal/app/features/health"
	loginfeature "github.com/dalemusser/chitfund/internal/app/features/login"
	logoutfeature "github.com/dalemusser/chitfund/internal/app/features/logout"
	membersfeature "github.com/dalemusser/chitfund/internal/app/features/members"
	paymentsfeature "github.com/dalemusser/chitfund/internal/app/features/payments"
	transactionsfeature "github.com/dalemusser/chitfund/internal/app/features/transactions"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The router carries the global middleware
// (request id, recovery, access log, CORS, metrics, session loading) and
// mounts one feature router per API area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	db := deps.ChitFundMongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(svc.Metrics.Middleware)

	// Loads the signed-in admin into the context; never rejects.
	r.Use(sessionMgr.LoadAdmin)

	healthHandler := healthfeature.NewHandler(deps.ChitFundMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, svc.Limiter, svc.Notices, svc.AuditLog, appCfg.OTPExpiry, logger)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler, sessionMgr))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.AuditLog, logger)
	r.Mount("/api/auth/logout", logoutfeature.Routes(logoutHandler))

	// Ledger
	paymentsHandler := paymentsfeature.NewHandler(db, svc.Ledger, svc.Notices, svc.AuditLog, svc.Metrics, logger)
	r.Mount("/api/payment", paymentsfeature.Routes(paymentsHandler, sessionMgr))

	chitsHandler := chitsfeature.NewHandler(db, svc.AuditLog, logger)
	r.Mount("/api/chits", chitsfeature.Routes(chitsHandler, sessionMgr))

	membersHandler := membersfeature.NewHandler(db, svc.Notices, svc.AuditLog, logger)
	r.Mount("/api/members", membersfeature.Routes(membersHandler, sessionMgr))

	transactionsHandler := transactionsfeature.NewHandler(db, svc.AuditLog, logger)
	r.Mount("/api/transactions", transactionsfeature.Routes(transactionsHandler, sessionMgr))

	dashboardHandler := dashboardfeature.NewHandler(db, svc.Ledger, logger)
	r.Mount("/api/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, logger)
	r.Mount("/api/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	// Unknown API paths answer with the envelope instead of chi's plain text.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, logger, apierr.NotFound("Route not found."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, respond.Envelope{
			Success: false,
			Message: "Method not allowed.",
		})
	})

	return r, nil
}

// requestLogger writes one zap line per request once the response is done.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote_ip", r.RemoteAddr),
				}
				switch {
				case status >= 500:
					logger.Error("http request", fields...)
				case status >= 400:
					logger.Info("http request", fields...)
				default:
					logger.Debug("http request", fields...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
