// Package api provides HTTP handlers and the main API server logic for the
// intake engine.
//
// It exposes RESTful endpoints for creating intake sessions, answering steps,
// and submitting completed sessions to the case-management API. The API is
// anonymous: sessions are claimed by knowing their identifier.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/TenantGuard/intake-engine/internal/flow"
	"github.com/TenantGuard/intake-engine/internal/messaging"
	"github.com/TenantGuard/intake-engine/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Shutdown and request timing constants.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr       string
	Store      store.Store
	CaseClient flow.CaseService
	MsgService messaging.Service
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStore sets the session store backend.
func WithStore(st store.Store) Option {
	return func(o *Opts) { o.Store = st }
}

// WithCaseClient sets the case-management API client.
func WithCaseClient(c flow.CaseService) Option {
	return func(o *Opts) { o.CaseClient = c }
}

// WithMessagingService sets the confirmation delivery channel.
func WithMessagingService(svc messaging.Service) Option {
	return func(o *Opts) { o.MsgService = svc }
}

// Server hosts the intake HTTP API.
type Server struct {
	addr       string
	st         store.Store
	submitter  *flow.Submitter
	msgService messaging.Service
	httpServer *http.Server

	// sessionLocks serializes handlers per session id, so an answer or a
	// second submit cannot interleave with an in-flight submission.
	sessionLocks sync.Map
}

// lockSession takes the per-session mutex and returns its unlock func.
func (s *Server) lockSession(id string) func() {
	v, _ := s.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// NewServer creates an API server from the given options.
func NewServer(opts ...Option) (*Server, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Store == nil {
		slog.Debug("Server.NewServer: no store configured, using in-memory store")
		cfg.Store = store.NewInMemoryStore()
	}
	if cfg.CaseClient == nil {
		return nil, fmt.Errorf("case API client must be provided")
	}
	if cfg.MsgService == nil {
		cfg.MsgService = messaging.NewNoopService()
	}

	s := &Server{
		addr:       cfg.Addr,
		st:         cfg.Store,
		submitter:  flow.NewSubmitter(cfg.CaseClient, cfg.Store),
		msgService: cfg.MsgService,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /intake/sessions", s.createSessionHandler)
	mux.HandleFunc("GET /intake/sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /intake/sessions/{id}/answer", s.answerHandler)
	mux.HandleFunc("POST /intake/sessions/{id}/submit", s.submitHandler)
	mux.HandleFunc("DELETE /intake/sessions/{id}", s.deleteSessionHandler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	return s, nil
}

// Handler returns the server's HTTP handler (used in tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: intake API listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("Server.Run: listen failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
		return err
	}
	slog.Info("Server.Run: shutdown complete")
	return nil
}
