// Package api exposes the HTTP surface of the Unified AI Command Centre:
// record creation and listing, batch notification sends, workflow instance
// control, the conversation transcript, and the inbound WhatsApp webhook.
// Every endpoint answers with the models.APIResponse envelope.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/engine"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/store"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	store  store.Store
	engine *engine.Engine
	addr   string
}

// NewServer creates an API server around an engine and its store.
func NewServer(st store.Store, eng *engine.Engine, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{store: st, engine: eng, addr: cfg.Addr}
}

// Handler builds the route table. Split out from Run so tests can drive the
// mux through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", s.createUserHandler)
	mux.HandleFunc("GET /users", s.listUsersHandler)
	mux.HandleFunc("POST /templates", s.createTemplateHandler)
	mux.HandleFunc("GET /templates", s.listTemplatesHandler)
	mux.HandleFunc("POST /workflows", s.createWorkflowHandler)
	mux.HandleFunc("GET /workflows", s.listWorkflowsHandler)
	mux.HandleFunc("POST /workflow-steps", s.createWorkflowStepHandler)
	mux.HandleFunc("PUT /workflow-steps/{id}", s.updateWorkflowStepHandler)
	mux.HandleFunc("GET /workflows/{id}/steps", s.listWorkflowStepsHandler)

	mux.HandleFunc("POST /workflow-instances", s.startInstanceHandler)
	mux.HandleFunc("GET /workflow-instances/{id}", s.getInstanceHandler)
	mux.HandleFunc("POST /workflow-instances/{id}/advance", s.advanceInstanceHandler)
	mux.HandleFunc("POST /workflow-instances/{id}/dispatch", s.dispatchStepHandler)
	mux.HandleFunc("POST /workflow-instances/{id}/pause", s.pauseInstanceHandler)
	mux.HandleFunc("POST /workflow-instances/{id}/resume", s.resumeInstanceHandler)

	mux.HandleFunc("POST /notifications/send", s.sendNotificationHandler)
	mux.HandleFunc("GET /notifications", s.listNotificationsHandler)
	mux.HandleFunc("GET /conversations", s.listConversationsHandler)

	mux.HandleFunc("POST /webhook/whatsapp", s.whatsAppWebhookHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
