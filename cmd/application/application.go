// Package application provides the application interface for cmdboard commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            logger := app.Logger()
//	            cfg := app.ServerConfig()
//	            // ... load the dashboard and serve it
//	            return nil
//	        },
//	    }
//	}
//
// Tests pass an *application.Mock from internal/cmd/application instead.
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/cmdboard/internal/server"
)

// Application provides the application interface that commands need.
// The App struct from cmd/cmdboard/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Logger returns the configured logger instance.
	// Commands should use this for all logging operations.
	Logger() *zerolog.Logger

	// ServerConfig returns server settings from the environment and the
	// settings file. Command flags are applied on top by the caller.
	ServerConfig() server.Config

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
