// Package api exposes the retrieval and ingestion engine over HTTP.
//
// Endpoints:
//
//	POST /rag/query       → hybrid retrieval
//	POST /notion/ingest   → externally-pushed note ingestion
//	POST /sessions/ingest → finished-session artifact ingestion
//	POST /admin/reindex   → batch CMS reindex (admin token required)
//	GET  /health          → liveness probe
//	GET  /ready           → readiness probe (pings the database)
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imagilearn/corpus/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Retrieval queries embed the query text upstream, so responses can
	// take several seconds under provider latency.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the engine's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health *HealthHandler
	query  *QueryHandler
	ingest *IngestHandler
	admin  *AdminHandler
}

// Deps carries the collaborators the handlers need.
type Deps struct {
	Pool       *pgxpool.Pool
	Searcher   Searcher
	Ingester   Ingester
	Reindexer  ReindexRunner
	AdminToken string
	Logger     log.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(deps Deps) *Server {
	mux := http.NewServeMux()
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(deps.Pool, logger),
		query:  NewQueryHandler(deps.Searcher, logger),
		ingest: NewIngestHandler(deps.Ingester, logger),
		admin:  NewAdminHandler(deps.Reindexer, deps.AdminToken, logger),
	}

	s.health.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)
	s.ingest.RegisterRoutes(mux)
	s.admin.RegisterRoutes(mux)

	return s
}

// Handler returns the mux wrapped in the middleware chain:
// recovery → request id → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
