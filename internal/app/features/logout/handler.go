// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/system/auditlog"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout expires the session cookie. Signing out twice is harmless.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorID(r)
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		// the client drops its state anyway; the cookie ages out on its own
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if actor != "" {
		h.AuditLog.Logout(r.Context(), r, actor)
	}
	respond.OK(w, "Signed out.", nil)
}
