// internal/app/features/login/login.go
package login

import (
	"errors"
	"net/http"

	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Password string `json:"password" validate:"required,max=200" label:"Password"`
}

// HandleLogin checks the credentials and starts a session. Unknown emails
// and wrong passwords get the same answer.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth.login")
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, in.Email, reason)
			respond.Error(w, r, h.Log, apierr.RateLimited(reason))
			return
		}
	}

	a, found, err := h.Admins.Authenticate(ctx, in.Email, in.Password)
	if errors.Is(err, adminstore.ErrBadCredentials) {
		event, reason := audit.EventLoginFailedUnknownEmail, "unknown email"
		if found {
			event, reason = audit.EventLoginFailedWrongPassword, "wrong password"
		}
		h.AuditLog.LoginFailed(ctx, r, event, in.Email, reason)
		respond.Error(w, r, h.Log, err)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	sa := auth.SessionAdmin{ID: a.ID.Hex(), Name: a.Name, Email: a.Email}
	if err := h.SessionMgr.SignIn(w, r, sa); err != nil {
		h.Log.Error("sign in", zap.String("admin_id", sa.ID), zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, a.ID, a.Email)
	h.Log.Info("admin signed in", zap.String("admin_id", sa.ID))
	respond.OK(w, "Signed in.", sa)
}

// ServeMe returns the signed-in admin.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	a, _ := auth.CurrentAdmin(r)
	respond.OK(w, "", a)
}
