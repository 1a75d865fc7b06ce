// Package auditlog routes audit events to the audit_events collection, to
// the structured log, to both, or nowhere, per event category.
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config picks a destination per category: "all", "db", "log" or "off".
// Blank means "all".
type Config struct {
	Auth  string // login, logout, password reset
	Admin string // chit, member, payment and transaction changes
}

type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) destinations(category string) (toDB, toLog bool) {
	mode := l.config.Admin
	if category == audit.CategoryAuth {
		mode = l.config.Auth
	}
	switch mode {
	case "off":
		return false, false
	case "db":
		return true, false
	case "log":
		return false, true
	}
	return true, true
}

// Log writes e to the configured destinations. A nil Logger does nothing.
// Store failures are logged, never returned: a change that already happened
// must not be reported as failed because its audit row could not be written.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	toDB, toLog := l.destinations(e.Category)
	if toLog {
		l.write(e)
	}
	if toDB {
		if err := l.store.Log(ctx, e); err != nil {
			l.zapLog.Error("audit store write failed", zap.String("event_type", e.EventType), zap.Error(err))
		}
	}
}

func (l *Logger) write(e audit.Event) {
	fields := make([]zap.Field, 0, 8+len(e.Details))
	fields = append(fields,
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	)
	if e.ActorID != nil {
		fields = append(fields, zap.Stringer("actor_id", e.ActorID))
	}
	if e.EntityID != nil {
		fields = append(fields, zap.String("entity_type", e.EntityType), zap.Stringer("entity_id", e.EntityID))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	lvl := zap.InfoLevel
	if !e.Success {
		lvl = zap.WarnLevel
	}
	l.zapLog.Log(lvl, "audit event", fields...)
}

// fromRequest fills the request-derived fields shared by every event.
func fromRequest(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// actor parses a session id; blank or malformed yields nil.
func actor(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, adminID primitive.ObjectID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.ActorID, e.Success = &adminID, true
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailed takes one of the EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email, reason string) {
	e := fromRequest(r, audit.CategoryAuth, eventType)
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, adminIDHex string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout)
	e.ActorID, e.Success = actor(adminIDHex), true
	l.Log(ctx, e)
}

func (l *Logger) ResetCodeSent(ctx context.Context, r *http.Request, adminID primitive.ObjectID) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventResetCodeSent)
	e.ActorID, e.Success = &adminID, true
	l.Log(ctx, e)
}

func (l *Logger) ResetCodeFailed(ctx context.Context, r *http.Request, email, reason string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventResetCodeFailed)
	e.FailureReason = reason
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, adminID primitive.ObjectID) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventPasswordReset)
	e.ActorID, e.Success = &adminID, true
	l.Log(ctx, e)
}

// Admin records a change made by the signed-in admin.
func (l *Logger) Admin(ctx context.Context, r *http.Request, actorIDHex, eventType, entityType string, entityID primitive.ObjectID, details map[string]string) {
	e := fromRequest(r, audit.CategoryAdmin, eventType)
	e.ActorID, e.Success = actor(actorIDHex), true
	e.EntityType, e.EntityID = entityType, &entityID
	e.Details = details
	l.Log(ctx, e)
}
