// Package timeouts holds the deadline tiers used around database work in
// handlers, startup and background jobs.
//
// Tiers:
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and multi-step writes
//   - Long: cascades touching several collections
//   - Batch: exports, imports, schema reconciliation
//   - Aggregate: maxTimeMS sent with ledger aggregation pipelines
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing      = 2 * time.Second
	DefaultShort     = 5 * time.Second
	DefaultMedium    = 10 * time.Second
	DefaultLong      = 30 * time.Second
	DefaultBatch     = 60 * time.Second
	DefaultAggregate = 5 * time.Second
)

// Config holds timeout values. Zero fields leave the current value alone.
type Config struct {
	Ping      time.Duration
	Short     time.Duration
	Medium    time.Duration
	Long      time.Duration
	Batch     time.Duration
	Aggregate time.Duration
}

func defaults() Config {
	return Config{
		Ping:      DefaultPing,
		Short:     DefaultShort,
		Medium:    DefaultMedium,
		Long:      DefaultLong,
		Batch:     DefaultBatch,
		Aggregate: DefaultAggregate,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration      { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration     { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration    { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration      { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration     { return get(func(c Config) time.Duration { return c.Batch }) }
func Aggregate() time.Duration { return get(func(c Config) time.Duration { return c.Aggregate }) }

// fields pairs each tier with its environment variable.
func (c *Config) fields() []struct {
	env string
	ptr *time.Duration
} {
	return []struct {
		env string
		ptr *time.Duration
	}{
		{"TIMEOUT_PING", &c.Ping},
		{"TIMEOUT_SHORT", &c.Short},
		{"TIMEOUT_MEDIUM", &c.Medium},
		{"TIMEOUT_LONG", &c.Long},
		{"TIMEOUT_BATCH", &c.Batch},
		{"TIMEOUT_AGGREGATE", &c.Aggregate},
	}
}

// Configure overrides the tiers set to a positive value in cfg. Call it
// during startup, before handlers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	src := cfg.fields()
	for i, f := range cur.fields() {
		if v := *src[i].ptr; v > 0 {
			*f.ptr = v
		}
	}
}

// Reset restores the defaults. Tests use it in t.Cleanup.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG, TIMEOUT_BATCH and TIMEOUT_AGGREGATE as Go durations
// ("5s", "1m30s"). Unset, unparsable or non-positive values are ignored.
// It returns how many tiers were changed.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, f := range cfg.fields() {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*f.ptr = d
			n++
		}
	}
	if n > 0 {
		Configure(cfg)
	}
	return n
}

// Current returns a snapshot of every tier.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout wraps context.WithTimeout; the returned cancel logs a warning
// when the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "payments.export")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
