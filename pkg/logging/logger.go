// Package logging provides structured logging for cmdboard using zerolog.
// It offers human-readable console output on terminals and structured JSON
// output everywhere else.
//
// There is no package-level logger: the process logger is built once at
// startup and handed to every component that logs.
//
// Example usage:
//
//	logger := logging.NewLoggerFromConfig(&logging.Config{Level: "debug"})
//	logger.Info().Str("path", "/uptime").Msg("Registered command route")
//
//	// Carry a logger through a request
//	ctx := logging.WithLogger(r.Context(), &logger)
//	logging.FromContext(ctx).Debug().Msg("Using logger from context")
package logging

import (
	"github.com/rs/zerolog"
)

// Nop logger for discarding output.
var Nop = zerolog.Nop()
