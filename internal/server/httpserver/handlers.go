package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"git.home.luguber.info/inful/storysite/internal/logfields"
	"git.home.luguber.info/inful/storysite/internal/store"
	"git.home.luguber.info/inful/storysite/internal/version"
)

// PublicHandler returns the mux serving the content API.
func (s *Server) PublicHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sitemap.xml", s.handleSitemap)
	mux.HandleFunc("GET /api/navigation", s.handleNavigation)
	mux.HandleFunc("GET /api/footer", s.handleFooter)
	mux.HandleFunc("GET /api/routes", s.handleRoutes)
	mux.HandleFunc("GET /api/page/{slug...}", s.handlePage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// AdminHandler returns the mux serving operational endpoints.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	if s.deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}
	return mux
}

// handleSitemap serves the sitemap, preferring the cached snapshot and
// regenerating on a miss.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.cached(r.Context(), store.KindSitemap)
	if !ok {
		doc = s.deps.Sitemap.Generate(r.Context(), s.deps.Version)
		s.snapshot(r.Context(), store.KindSitemap, doc)
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(doc)
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if payload, ok := s.cached(r.Context(), store.KindNavigation); ok {
		writeRawJSON(w, payload)
		return
	}
	nav := s.deps.Site.Navigation(r.Context(), s.deps.Version)
	s.writeAndSnapshot(w, r.Context(), store.KindNavigation, nav)
}

func (s *Server) handleFooter(w http.ResponseWriter, r *http.Request) {
	if payload, ok := s.cached(r.Context(), store.KindFooter); ok {
		writeRawJSON(w, payload)
		return
	}
	footer := s.deps.Site.Footer(r.Context(), s.deps.Version)
	s.writeAndSnapshot(w, r.Context(), store.KindFooter, footer)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if payload, ok := s.cached(r.Context(), store.KindRoutes); ok {
		writeRawJSON(w, payload)
		return
	}
	routeList, err := s.deps.Routes.Generate(r.Context(), s.deps.Version)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeAndSnapshot(w, r.Context(), store.KindRoutes, routeList)
}

// handlePage resolves a story page. Pages are not snapshotted; their
// resolution already has exactly one upstream call.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Site.Page(r.Context(), r.PathValue("slug"), s.deps.Version)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "running",
		"version":         version.Version,
		"content_version": s.deps.Version,
		"uptime_seconds":  int(time.Since(s.startTime).Seconds()),
	})
}

// handleRefresh triggers a snapshot refresh run and reports its outcome.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresh == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "refresh not configured"})
		return
	}
	res := s.deps.Refresh.Run(r.Context(), s.deps.Version)
	writeJSON(w, http.StatusOK, res)
}

// cached returns the stored snapshot payload for the configured version.
// Store errors count as misses; the handler then recomputes.
func (s *Server) cached(ctx context.Context, kind string) ([]byte, bool) {
	if s.deps.Store == nil {
		return nil, false
	}
	snap, ok, err := s.deps.Store.Get(ctx, kind, s.deps.Version)
	if err != nil {
		s.logger.Warn("snapshot read failed", logfields.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return snap.Payload, true
}

func (s *Server) snapshot(ctx context.Context, kind string, payload []byte) {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.Put(ctx, kind, s.deps.Version, payload); err != nil {
		s.logger.Warn("snapshot write failed", logfields.Error(err))
	}
}

func (s *Server) writeAndSnapshot(w http.ResponseWriter, ctx context.Context, kind string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode response"})
		return
	}
	s.snapshot(ctx, kind, payload)
	writeRawJSON(w, payload)
}

func writeRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
