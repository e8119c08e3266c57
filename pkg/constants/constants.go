// Package constants provides shared constants used throughout the cmdboard codebase.
// This includes timeouts, file permissions, formats, and other values that
// should be consistent across the application.
package constants

import "time"

// Server timeout constants. Command handlers block for the lifetime of the
// spawned process, so there is no write timeout.
const (
	// ReadHeaderTimeout bounds how long a client may take to send request headers
	ReadHeaderTimeout = 10 * time.Second

	// IdleTimeout is how long keep-alive connections stay open between requests
	IdleTimeout = 120 * time.Second

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown
	ShutdownTimeout = 30 * time.Second
)

// FilePermissions is the mode used for files written by tests and tooling (rw-r--r--)
const FilePermissions = 0644

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per minute per client (0 disables)
	DefaultRateLimit = 0

	// RateLimitWindow is the window over which requests are counted
	RateLimitWindow = time.Minute

	// VisitorCleanupInterval is how often idle rate limit entries are swept
	VisitorCleanupInterval = 5 * time.Minute

	// VisitorIdleTTL is how long a client is remembered after its last window
	VisitorIdleTTL = 10 * time.Minute
)

// Format constants
const (
	// TimeFormatPage is the timestamp format printed on command result pages
	TimeFormatPage = "2006-01-02 15:04:05.000000000 -0700"

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// Path constants
const (
	// DefaultSettingsName is the base name of the optional settings file in $HOME
	DefaultSettingsName = ".cmdboard"

	// IndexPath is the route of the index page
	IndexPath = "/"

	// RequestIDHeader carries the per-request id on responses
	RequestIDHeader = "X-Request-ID"
)
