// Package httpserver wires the public content API and the admin endpoints
// onto two HTTP listeners. Both ports are pre-bound before any server
// starts so startup failures surface as one aggregate error.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/storysite/internal/config"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/refresh"
	"git.home.luguber.info/inful/storysite/internal/routes"
	smw "git.home.luguber.info/inful/storysite/internal/server/middleware"
	"git.home.luguber.info/inful/storysite/internal/site"
	"git.home.luguber.info/inful/storysite/internal/sitemap"
	"git.home.luguber.info/inful/storysite/internal/store"
)

// Deps are the collaborators the HTTP handlers serve from.
type Deps struct {
	Site    *site.Service
	Sitemap *sitemap.Generator
	Routes  *routes.Generator
	Store   store.Store
	Refresh *refresh.Service

	// Version is the content version requests are served from.
	Version string
	// MetricsHandler serves the admin /metrics endpoint; nil disables it.
	MetricsHandler http.Handler
}

// Server manages the public and admin HTTP servers.
type Server struct {
	publicServer *http.Server
	adminServer  *http.Server
	cfg          *config.Config
	deps         Deps
	logger       *slog.Logger
	errorAdapter *serrors.HTTPErrorAdapter
	mchain       func(http.Handler) http.Handler
	startTime    time.Time
}

// New constructs the HTTP server wiring.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := serrors.NewHTTPErrorAdapter(logger)
	return &Server{
		cfg:          cfg,
		deps:         deps,
		logger:       logger,
		errorAdapter: adapter,
		mchain:       smw.Chain(logger, adapter),
		startTime:    time.Now(),
	}
}

// Start pre-binds both ports and launches the servers. A failed bind closes
// any listener already acquired and returns the joined errors.
func (s *Server) Start(ctx context.Context) error {
	type preBind struct {
		name string
		port int
		ln   net.Listener
	}
	binds := []preBind{
		{name: "public", port: s.cfg.Server.Port},
		{name: "admin", port: s.cfg.Server.AdminPort},
	}

	var bindErrs []error
	lc := net.ListenConfig{}
	for i := range binds {
		addr := fmt.Sprintf(":%d", binds[i].port)
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("%s port %d: %w", binds[i].name, binds[i].port, err))
			continue
		}
		binds[i].ln = ln
	}
	if len(bindErrs) > 0 {
		for _, b := range binds {
			if b.ln != nil {
				_ = b.ln.Close()
			}
		}
		return fmt.Errorf("http startup failed: %w", errors.Join(bindErrs...))
	}

	s.publicServer = &http.Server{
		Handler:           s.mchain(s.PublicHandler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.adminServer = &http.Server{
		Handler:           s.mchain(s.AdminHandler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.serve("public", s.publicServer, binds[0].ln)
	s.serve("admin", s.adminServer, binds[1].ln)

	s.logger.Info("HTTP servers started",
		slog.Int("public_port", s.cfg.Server.Port),
		slog.Int("admin_port", s.cfg.Server.AdminPort))
	return nil
}

// Stop gracefully shuts down both servers, admin first.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}
	if s.publicServer != nil {
		if err := s.publicServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("public server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	s.logger.Info("HTTP servers stopped")
	return nil
}

// serve launches an http.Server on its pre-bound listener.
func (s *Server) serve(kind string, srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(fmt.Sprintf("%s server error", kind), "error", err)
		}
	}()
}
