package server

import (
	"fmt"
	"net/http"

	"github.com/ctcl-atlas/atlas/internal/server/handlers"
	"github.com/ctcl-atlas/atlas/internal/server/middleware"
	"github.com/ctcl-atlas/atlas/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.app,
		s.cache,
		s.broker,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
		s.startTime,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Dataset and genes
	mux.HandleFunc("GET "+prefix+"/dataset", h.HandleDataset)
	mux.HandleFunc("GET "+prefix+"/genes", h.HandleListGenes)
	mux.HandleFunc("GET "+prefix+"/genes/quick", h.HandleQuickGenes)
	mux.HandleFunc("GET "+prefix+"/genes/{gene}/summary", h.HandleSummary)
	mux.HandleFunc("GET "+prefix+"/genes/{gene}/compare", h.HandleCompare)
	mux.HandleFunc("GET "+prefix+"/genes/{gene}/insight", h.HandleInsight)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/explore/ws", h.HandleExplorer)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	// Everything else under the prefix gets the JSON error envelope.
	mux.HandleFunc(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found", "No route for "+r.Method+" "+r.URL.Path)
	})

	if s.config.MetricsEnabled {
		mux.HandleFunc("GET /metrics", s.handleMetrics)
	}
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	stats := s.cache.GetStats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = fmt.Fprintf(w, "# TYPE ctclatlas_cache_items gauge\nctclatlas_cache_items %d\n", stats.ItemCount)
	_, _ = fmt.Fprintf(w, "# TYPE ctclatlas_cache_hits_total counter\nctclatlas_cache_hits_total %d\n", stats.Hits)
	_, _ = fmt.Fprintf(w, "# TYPE ctclatlas_cache_misses_total counter\nctclatlas_cache_misses_total %d\n", stats.Misses)
	_, _ = fmt.Fprintf(w, "# TYPE ctclatlas_websocket_clients gauge\nctclatlas_websocket_clients %d\n", s.wsHub.ClientCount())
	_, _ = fmt.Fprintf(w, "# TYPE ctclatlas_sse_clients gauge\nctclatlas_sse_clients %d\n", s.sseBroadcaster.ClientCount())
}

// applyMiddleware wraps handler with middleware chain. The first entry is
// the outermost.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logger(s.logger),
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		} else {
			corsConfig.AllowAll = true
		}
		chain = append(chain, middleware.CORS(corsConfig))
	}

	// Rate limiting runs before auth so failed keys count against the caller.
	if s.rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(s.rateLimiter))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.APIKey = cfg.AuthKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		chain = append(chain, middleware.Auth(authConfig, s.logger))
	}

	return middleware.Chain(chain...)(handler)
}
