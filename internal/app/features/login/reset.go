// internal/app/features/login/reset.go
package login

import (
	"errors"
	"net/http"
	"strings"

	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	otpstore "github.com/dalemusser/chitfund/internal/app/store/otp"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// forgotReply is sent whether or not the email belongs to the admin.
const forgotReply = "If that email is registered, a reset code has been sent."

type forgotInput struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
}

// HandleForgotPassword emails a one-time reset code. The reply never reveals
// whether the address is known.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth.forgot_password")
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.ResetCodeFailed(ctx, r, in.Email, "rate limited")
			respond.Error(w, r, h.Log, apierr.RateLimited(reason))
			return
		}
	}

	a, err := h.Admins.GetByEmail(ctx, in.Email)
	if errors.Is(err, adminstore.ErrNotFound) {
		h.AuditLog.ResetCodeFailed(ctx, r, in.Email, "unknown email")
		respond.OK(w, forgotReply, nil)
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	issued, err := h.OTP.Issue(ctx, a.ID, a.Email)
	if errors.Is(err, otpstore.ErrTooManyResends) {
		h.AuditLog.ResetCodeFailed(ctx, r, in.Email, "too many resends")
		respond.OK(w, forgotReply, nil)
		return
	}
	if err != nil {
		h.Log.Error("issue reset code", zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}
	if !h.Notices.ResetCode(a.Email, issued.Code, h.OTP.Expiry()) {
		h.Log.Warn("reset code not queued; mail disabled or queue full", zap.String("admin_id", a.ID.Hex()))
	}
	h.AuditLog.ResetCodeSent(ctx, r, a.ID)
	respond.OK(w, forgotReply, nil)
}

type resetInput struct {
	Email       string `json:"email" validate:"omitempty,emailaddr" label:"Email"`
	Code        string `json:"code" validate:"omitempty,len=6,numeric" label:"Code"`
	Token       string `json:"token" validate:"omitempty,uuid" label:"Token"`
	NewPassword string `json:"newPassword" validate:"required,max=200" label:"New password"`
}

// HandleResetPassword sets a new password after checking either the emailed
// code or the reset link token. Each code allows a limited number of tries.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	in.Token = strings.TrimSpace(in.Token)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if in.Token == "" && (in.Email == "" || in.Code == "") {
		respond.Error(w, r, h.Log, apierr.Validation("Enter the email and the reset code.",
			map[string]string{"code": "email and code are required without a reset token"}))
		return
	}
	if len(in.NewPassword) < adminstore.MinPasswordLength {
		respond.Error(w, r, h.Log, apierr.Validation(adminstore.ErrWeakPassword.Error(),
			map[string]string{"newPassword": "too short"}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth.reset_password")
	defer cancel()

	var (
		c   *otpstore.Code
		err error
	)
	if in.Token != "" {
		c, err = h.OTP.VerifyToken(ctx, in.Token)
	} else {
		c, err = h.OTP.Verify(ctx, in.Email, in.Code)
	}
	if err != nil {
		h.AuditLog.ResetCodeFailed(ctx, r, in.Email, err.Error())
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Admins.SetPassword(ctx, c.AdminID, in.NewPassword); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(c.Email)
	}
	h.AuditLog.PasswordReset(ctx, r, c.AdminID)
	h.Log.Info("admin password reset", zap.String("admin_id", c.AdminID.Hex()))
	respond.OK(w, "Password updated. Please sign in.", nil)
}
