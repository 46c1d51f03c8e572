// Package server exposes the widget engine to embedding frontends over
// HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dtflabs/zapper/internal/server/handler"
	"github.com/dtflabs/zapper/internal/server/middleware"
	"github.com/dtflabs/zapper/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Quote   *handler.QuoteHandler
	Widget  *handler.WidgetHandler
	Tx      *handler.TxHandler
	Report  *handler.ReportHandler
	History *handler.HistoryHandler
}

// reportRateLimit bounds failure-report submissions per client IP.
const (
	reportRateLimit  = 5
	reportRateWindow = time.Minute
)

// Server is the HTTP + WebSocket API for one widget engine instance.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer registers all routes on a ServeMux and wires the middleware
// chain (logging, CORS) plus the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/quote", handlers.Quote.GetQuote)
	mux.HandleFunc("POST /api/quote/refresh", handlers.Quote.Refresh)

	mux.HandleFunc("GET /api/state", handlers.Widget.GetState)
	mux.HandleFunc("PATCH /api/state", handlers.Widget.UpdateState)
	mux.HandleFunc("GET /api/tokens", handlers.Widget.ListTokens)
	mux.HandleFunc("POST /api/widget/open", handlers.Widget.Open)
	mux.HandleFunc("POST /api/widget/close", handlers.Widget.Close)
	mux.HandleFunc("POST /api/widget/toggle", handlers.Widget.Toggle)

	mux.HandleFunc("GET /api/tx", handlers.Tx.GetStatus)
	mux.HandleFunc("POST /api/tx/submit", handlers.Tx.Submit)
	mux.HandleFunc("POST /api/tx/ack", handlers.Tx.Acknowledge)

	reportLimited := middleware.RateLimit(reportRateLimit, reportRateWindow)
	mux.Handle("POST /api/report", reportLimited(http.HandlerFunc(handlers.Report.SubmitReport)))

	if handlers.History != nil {
		mux.HandleFunc("GET /api/history", handlers.History.ListRecent)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
