// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.RenderTotal)
//	idle := cfg.IdleTimeout
//	if idle <= 0 {
//	    idle = duration.BrowserIdle
//	}
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// BROWSER/HEADLESS TIMEOUTS
// ============================================================================
//
// Use these for chromedp sessions in the document renderer.
// ============================================================================

const (
	// BrowserIdle bounds the wait for the network-idle lifecycle event (30s)
	BrowserIdle = 30 * time.Second

	// BrowserTeardown bounds graceful browser shutdown before force-kill (5s)
	BrowserTeardown = 5 * time.Second

	// RenderTotal bounds a whole render session including launch (2min)
	RenderTotal = 2 * time.Minute
)

// ============================================================================
// HTTP SERVER TIMEOUTS
// ============================================================================

const (
	// ServerRead is the gateway read timeout (15s)
	ServerRead = 15 * time.Second

	// ServerWrite is the gateway write timeout; covers a full render (3min)
	ServerWrite = 3 * time.Minute

	// ServerShutdown bounds graceful shutdown (10s)
	ServerShutdown = 10 * time.Second
)

// ============================================================================
// LOCKING
// ============================================================================

const (
	// LockTTL is the expiry of a distributed per-identity lock (1min)
	LockTTL = 1 * time.Minute

	// LockPoll is the interval between distributed lock attempts (50ms)
	LockPoll = 50 * time.Millisecond
)

// ============================================================================
// RETRY / TELEMETRY
// ============================================================================

const (
	// RetryInit is the base delay before retrying a failed render (1s)
	RetryInit = 1 * time.Second

	// RetryMax caps any single retry delay (10s)
	RetryMax = 10 * time.Second

	// RedisConnect bounds the initial Redis ping (5s)
	RedisConnect = 5 * time.Second

	// TelemetryConnect bounds OTLP exporter setup (10s)
	TelemetryConnect = 10 * time.Second

	// TelemetryShutdown bounds tracer provider flush on exit (5s)
	TelemetryShutdown = 5 * time.Second
)
