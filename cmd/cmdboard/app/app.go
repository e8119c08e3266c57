// Package app provides the application context and dependency management
// for the cmdboard CLI: settings, logging and the cobra command tree.
package app

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/cmdboard/cmd/application"
	"github.com/agentstation/cmdboard/internal/cmd/output"
	"github.com/agentstation/cmdboard/internal/server"
	"github.com/agentstation/cmdboard/pkg/errors"
)

// App represents the cmdboard application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// Settings are loaded from the environment, .env files and the optional
// settings file, then customized by opts.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "settings", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the output format for listing commands. Without an
// explicit -o it is table on a terminal and json otherwise.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Output))
}

// ServerConfig returns server settings derived from the application
// configuration.
func (a *App) ServerConfig() server.Config {
	cfg := server.DefaultConfig()
	cfg.ListenAddress = a.config.ListenAddress
	cfg.RateLimit = a.config.RateLimit
	cfg.TrustedProxies = append([]string(nil), a.config.TrustedProxies...)
	if a.config.ReadHeaderTimeout > 0 {
		cfg.ReadHeaderTimeout = a.config.ReadHeaderTimeout
	}
	if a.config.IdleTimeout > 0 {
		cfg.IdleTimeout = a.config.IdleTimeout
	}
	if a.config.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = a.config.ShutdownTimeout
	}
	return cfg
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
