// internal/app/features/login/handler.go
package login

import (
	"time"

	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	otpstore "github.com/dalemusser/chitfund/internal/app/store/otp"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/notices"
	"github.com/dalemusser/chitfund/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func init() {
	apierr.Register(adminstore.ErrBadCredentials, apierr.KindUnauthorized)
	apierr.Register(adminstore.ErrWeakPassword, apierr.KindValidation)
	apierr.Register(otpstore.ErrNotFound, apierr.KindValidation)
	apierr.Register(otpstore.ErrInvalidCode, apierr.KindValidation)
	apierr.Register(otpstore.ErrTooManyAttempts, apierr.KindRateLimited)
}

// Handler serves admin sign-in and password recovery.
type Handler struct {
	Admins     *adminstore.Store
	OTP        *otpstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.AuthLimiter
	Notices    *notices.Notices
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.AuthLimiter,
	notes *notices.Notices,
	audit *auditlog.Logger,
	otpExpiry time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Admins:     adminstore.New(db),
		OTP:        otpstore.New(db, otpExpiry),
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Notices:    notes,
		AuditLog:   audit,
		Log:        logger,
	}
}
