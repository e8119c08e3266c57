package server

import (
	"net/http"

	"github.com/agentstation/cmdboard/internal/server/middleware"
)

// setupRouter registers the route table on a fresh mux and wraps it with
// the middleware chain.
func (s *Server) setupRouter() (http.Handler, error) {
	mux := http.NewServeMux()

	if err := register(mux, s.routes); err != nil {
		return nil, err
	}

	return s.applyMiddleware(mux), nil
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Rate limiting (if enabled)
	if s.config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(s.ctx, s.config.RateLimit, s.logger, s.proxies...)
		handler = middleware.RateLimit(rateLimiter)(handler)
	}

	// Request ids, logging and recovery (always enabled)
	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(handler)
}
