// Package server exposes the REST and WebSocket surface the dashboard and
// the change-detection service talk to.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfwatch/shelfarb/internal/server/handler"
	"github.com/shelfwatch/shelfarb/internal/server/middleware"
	"github.com/shelfwatch/shelfarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Webhooks      *handler.WebhookHandler
	Products      *handler.ProductHandler
	Opportunities *handler.OpportunityHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// (auth, logging, CORS) applied.
func New(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Inbound notifications from the change-detection service.
	mux.HandleFunc("POST /api/webhooks/change", handlers.Webhooks.HandleChange)
	mux.HandleFunc("GET /api/webhooks/records", handlers.Webhooks.ListRecords)

	// Product registration and tracking.
	mux.HandleFunc("POST /api/products", handlers.Products.Register)
	mux.HandleFunc("GET /api/products", handlers.Products.List)
	mux.HandleFunc("GET /api/products/{id}", handlers.Products.Get)
	mux.HandleFunc("DELETE /api/products/{id}", handlers.Products.Deactivate)
	mux.HandleFunc("GET /api/products/{id}/history", handlers.Products.History)
	mux.HandleFunc("POST /api/products/{id}/scan", handlers.Products.TriggerScan)
	mux.HandleFunc("GET /api/products/{id}/scan", handlers.Products.LastScan)
	mux.HandleFunc("GET /api/products/{id}/opportunity", handlers.Opportunities.Get)
	mux.HandleFunc("POST /api/scan", handlers.Products.ScanAll)

	// Dashboard reads.
	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.List)
	mux.HandleFunc("GET /api/stats", handlers.Opportunities.Stats)

	// WebSocket push.
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux
	// The webhook endpoint is called by the change-detection service,
	// which does not hold our API key; it and the health check skip auth.
	h = middleware.Auth(cfg.APIKey, []string{"/api/health", "/api/webhooks/", "/ws"})(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
