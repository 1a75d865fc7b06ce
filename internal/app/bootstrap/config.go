// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minProdSessionKey is the shortest session key accepted outside dev.
const minProdSessionKey = 32

// appConfigKeys defines the configuration keys for the chit fund service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CHITFUND_MONGO_URI, CHITFUND_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "chitfund", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "chitfund-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Admin session lifetime (e.g., 12h, 30m)"},

	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated origins allowed to call the API"},

	// Bootstrap administrator
	{Name: "admin_email", Default: "", Desc: "Email of the administrator created on first start"},
	{Name: "admin_name", Default: "Administrator", Desc: "Display name of the bootstrap administrator"},
	{Name: "admin_password", Default: "", Desc: "Initial password of the bootstrap administrator"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables mail)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@chitfund.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Chit Fund", Desc: "From display name"},
	{Name: "mail_oauth_client_id", Default: "", Desc: "Gmail XOAUTH2 client ID"},
	{Name: "mail_oauth_client_secret", Default: "", Desc: "Gmail XOAUTH2 client secret"},
	{Name: "mail_oauth_refresh_token", Default: "", Desc: "Gmail XOAUTH2 refresh token"},

	{Name: "otp_expiry", Default: "10m", Desc: "Password reset code expiry (e.g., 10m, 1h, 90s)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "aggregate_max_time", Default: "5s", Desc: "Server-side time limit for ledger aggregations"},

	// Notification workers
	{Name: "notify_workers", Default: 2, Desc: "Goroutines sending notification email"},
	{Name: "notify_queue_size", Default: 100, Desc: "Pending notifications held before new ones are dropped"},

	// Letterhead
	{Name: "company_name", Default: "Chit Fund", Desc: "Company name printed on invoices and letters"},
	{Name: "company_address", Default: "", Desc: "Company address printed on invoices and letters"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CHITFUND_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CHITFUND", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		AdminEmail:    appValues.String("admin_email"),
		AdminName:     appValues.String("admin_name"),
		AdminPassword: appValues.String("admin_password"),

		// Email/SMTP
		MailSMTPHost:          appValues.String("mail_smtp_host"),
		MailSMTPPort:          appValues.Int("mail_smtp_port"),
		MailSMTPUser:          appValues.String("mail_smtp_user"),
		MailSMTPPass:          appValues.String("mail_smtp_pass"),
		MailFrom:              appValues.String("mail_from"),
		MailFromName:          appValues.String("mail_from_name"),
		MailOAuthClientID:     appValues.String("mail_oauth_client_id"),
		MailOAuthClientSecret: appValues.String("mail_oauth_client_secret"),
		MailOAuthRefreshToken: appValues.String("mail_oauth_refresh_token"),

		OTPExpiry: appValues.Duration("otp_expiry", 10*time.Minute),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		AggregateMaxTime: appValues.Duration("aggregate_max_time", 5*time.Second),

		NotifyWorkers:   appValues.Int("notify_workers"),
		NotifyQueueSize: appValues.Int("notify_queue_size"),

		CompanyName:    appValues.String("company_name"),
		CompanyAddress: appValues.String("company_address"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked here to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return errors.New("mongo_database must be set")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d characters in prod", minProdSessionKey)
	}

	if n := appCfg.oauthFieldsSet(); n != 0 && n != 3 {
		return errors.New("mail_oauth_client_id, mail_oauth_client_secret and mail_oauth_refresh_token must be set together")
	}
	if appCfg.MailOAuthRefreshToken != "" && appCfg.MailSMTPUser == "" {
		return errors.New("mail_smtp_user must name the account when XOAUTH2 is configured")
	}

	if (appCfg.AdminEmail == "") != (appCfg.AdminPassword == "") {
		return errors.New("admin_email and admin_password must be set together")
	}

	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	for _, v := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log mode %q must be one of all, db, log, off", v)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
