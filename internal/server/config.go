package server

import (
	"time"

	"github.com/agentstation/cmdboard/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// ListenAddress is the host:port to bind. Empty means the address from
	// the dashboard configuration.
	ListenAddress string

	// HTTP timeouts. There is no write timeout: command pages are written
	// only after the process exits, however long that takes.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// RateLimit is requests per minute per client address (0 to disable)
	RateLimit int

	// TrustedProxies lists reverse proxies, as IP addresses or CIDR
	// prefixes, whose X-Forwarded-For header identifies the client for rate
	// limiting. Empty means the connection address is always used.
	TrustedProxies []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		IdleTimeout:       constants.IdleTimeout,
		ShutdownTimeout:   constants.ShutdownTimeout,
		RateLimit:         constants.DefaultRateLimit,
	}
}

// withDefaults fills zero durations from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	return c
}
