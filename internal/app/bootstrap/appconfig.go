// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for the chit fund service.
//
// Values come from CHITFUND_* environment variables, config files or flags
// (loaded in LoadConfig). WAFFLE's CoreConfig still owns the framework-level
// settings: ports, TLS, log level, request body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Upper bound on pooled connections
	MongoMinPoolSize uint64 // Connections kept warm

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: chitfund-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Admin session lifetime

	// Origins allowed to call the API with credentials (the dashboard).
	CORSAllowedOrigins []string

	// Bootstrap administrator, created on first start when missing.
	AdminEmail    string
	AdminName     string
	AdminPassword string

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit, smtp.gmail.com)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for Gmail)
	MailSMTPUser string // SMTP username; also the XOAUTH2 account
	MailSMTPPass string // SMTP password (unused with OAuth)
	MailFrom     string // From email address
	MailFromName string // From display name

	// Gmail XOAUTH2; all three or none.
	MailOAuthClientID     string
	MailOAuthClientSecret string
	MailOAuthRefreshToken string

	OTPExpiry time.Duration // Lifetime of password reset codes

	// Audit log destinations: all, db, log or off.
	AuditLogAuth  string
	AuditLogAdmin string

	AggregateMaxTime time.Duration // maxTimeMS for ledger aggregations

	// Background notification pool
	NotifyWorkers   int
	NotifyQueueSize int

	// Letterhead printed on invoices and welcome letters
	CompanyName    string
	CompanyAddress string
}

// oauthFieldsSet counts how many of the three XOAUTH2 settings are present.
func (c AppConfig) oauthFieldsSet() int {
	n := 0
	for _, v := range []string{c.MailOAuthClientID, c.MailOAuthClientSecret, c.MailOAuthRefreshToken} {
		if v != "" {
			n++
		}
	}
	return n
}
