// Package server builds the cmdboard route table and serves it over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/cmdboard/internal/executor"
	"github.com/agentstation/cmdboard/internal/render"
	"github.com/agentstation/cmdboard/internal/server/handlers"
	"github.com/agentstation/cmdboard/internal/server/middleware"
	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/errors"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	config    Config
	dash      *config.Configuration
	renderer  PageRenderer
	executor  handlers.Executor
	routes    []Route
	proxies   []netip.Prefix
	handler   http.Handler
	logger    *zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRenderer replaces the default page renderer.
func WithRenderer(r PageRenderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithExecutor replaces the default command executor.
func WithExecutor(e handlers.Executor) Option {
	return func(s *Server) {
		s.executor = e
	}
}

// New builds the route table for dash and the handler serving it. dash is
// copied; later changes to it have no effect on the server.
func New(cfg Config, dash *config.Configuration, logger *zerolog.Logger, opts ...Option) (*Server, error) {
	if dash == nil {
		return nil, errors.NewValidationError("configuration", nil, "is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg = cfg.withDefaults()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = dash.ListenAddress
	}
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:    cfg,
		dash:      dash.Clone(),
		proxies:   proxies,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.renderer == nil {
		r, err := render.New()
		if err != nil {
			cancel()
			return nil, err
		}
		s.renderer = r
	}
	if s.executor == nil {
		s.executor = executor.New(logger)
	}

	logger.Debug().
		Int("commands", len(s.dash.Commands)).
		Int("static_paths", len(s.dash.StaticPaths)).
		Msg("Building route table")

	s.routes = BuildRoutes(s.dash, s.renderer, s.executor, logger)

	handler, err := s.setupRouter()
	if err != nil {
		cancel()
		return nil, err
	}
	s.handler = handler

	logger.Debug().Int("routes", len(s.routes)).Msg("Server instance created successfully")
	return s, nil
}

// Handler returns the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Routes returns a copy of the route table in registration order.
func (s *Server) Routes() []Route {
	return append([]Route(nil), s.routes...)
}

// Addr returns the address the server binds to.
func (s *Server) Addr() string {
	return s.config.ListenAddress
}

// Listen binds the listen address. Binding happens before serving so an
// unusable address is reported to the caller instead of a goroutine.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return nil, errors.WrapIO("listen", s.config.ListenAddress, err)
	}
	return ln, nil
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.cancel()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Int("routes", len(s.routes)).
			Msg("Server starting")

		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErr <- errors.WrapIO("serve", ln.Addr().String(), err)
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.WrapResource("shutdown", "server", ln.Addr().String(), err)
		}

		s.logger.Info().
			Dur("uptime", time.Since(s.startTime)).
			Msg("Server stopped gracefully")
		return <-serverErr
	}
}

// ListenAndServe binds the listen address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Shutdown stops background services such as the rate limiter sweep. It is
// called by Serve and only needed for servers that never serve.
func (s *Server) Shutdown() {
	s.cancel()
}
