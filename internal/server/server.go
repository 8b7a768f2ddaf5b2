// Package server is the HTTP surface of the conversation core: the inbound
// trigger, the SSE observer stream, and the audit/status endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orchestraai/orchestra/internal/archive"
	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/llm"
	"github.com/orchestraai/orchestra/internal/orchestra"
	"github.com/orchestraai/orchestra/internal/phase"
)

// Config holds server configuration.
type Config struct {
	Addr string // listen address, e.g. "127.0.0.1:8080"
}

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	Dispatcher  *orchestra.Dispatcher
	Log         *conversation.Log
	Summaries   *conversation.SummaryStore
	Machine     *phase.Machine
	Models      *orchestra.ModelState
	Client      *llm.Client
	Broadcaster *Broadcaster
	Archive     *archive.Store // optional
}

// Server is the HTTP server for one conversation.
type Server struct {
	config      Config
	dispatcher  *orchestra.Dispatcher
	log         *conversation.Log
	summaries   *conversation.SummaryStore
	machine     *phase.Machine
	models      *orchestra.ModelState
	client      *llm.Client
	broadcaster *Broadcaster
	archive     *archive.Store
	baseCtx     context.Context
	cancel      context.CancelFunc
	httpSrv     *http.Server
	logger      *log.Logger
}

// New creates a new Server with the given config and collaborators.
func New(cfg Config, deps Deps) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:      cfg,
		dispatcher:  deps.Dispatcher,
		log:         deps.Log,
		summaries:   deps.Summaries,
		machine:     deps.Machine,
		models:      deps.Models,
		client:      deps.Client,
		broadcaster: deps.Broadcaster,
		archive:     deps.Archive,
		baseCtx:     ctx,
		cancel:      cancel,
		logger:      log.New(os.Stderr, "[orchestra-server] ", log.LstdFlags),
	}

	mux := http.NewServeMux()

	// Go 1.22+ method+pattern routing.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/input", s.handleSubmitInput)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/turns", s.handleTurns)
	mux.HandleFunc("GET /api/phase", s.handlePhase)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/select_model", s.handleSelectModel)
	mux.HandleFunc("POST /api/artifacts", s.handleSaveArtifact)

	s.httpSrv = &http.Server{
		Handler:      csrfProtect(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE requires no write timeout
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s
}

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.logger.Printf("received %s, shutting down...", sig)
		s.Shutdown()
	}()

	s.logger.Printf("listening on %s", s.config.Addr)
	s.httpSrv.Addr = s.config.Addr
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// recordFileSaved appends a file_saved turn outside the dispatch path, with
// publication through the normal fan-out.
func (s *Server) recordFileSaved(path, checksum string, size int64) {
	t := conversation.NewTurn(conversation.RoleEther, conversation.KindFileSaved,
		fmt.Sprintf("artifact saved: %s (%d bytes)", path, size))
	t.Metadata = map[string]any{"path": path, "checksum": checksum}
	stored, err := s.log.Append(t)
	if err != nil {
		s.logger.Printf("drop file_saved turn: %v", err)
		return
	}
	s.broadcaster.Publish(stored)
}

// csrfProtect rejects cross-origin POST requests. Browsers automatically set
// the Origin header on cross-origin requests, so checking it blocks CSRF from
// malicious web pages while allowing CLI/programmatic callers.
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			origin := r.Header.Get("Origin")
			if origin != "" {
				u, err := url.Parse(origin)
				if err != nil {
					http.Error(w, `{"error":"invalid Origin header"}`, http.StatusForbidden)
					return
				}
				host := u.Hostname()
				if host != "localhost" && host != "127.0.0.1" && host != "::1" {
					http.Error(w, `{"error":"cross-origin request blocked"}`, http.StatusForbidden)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() {
	s.broadcaster.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.cancel()
}
