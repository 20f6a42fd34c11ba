// Package server provides the HTTP server for the atlas API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/server/cache"
	"github.com/ctcl-atlas/atlas/internal/server/events"
	"github.com/ctcl-atlas/atlas/internal/server/events/adapters"
	"github.com/ctcl-atlas/atlas/internal/server/handlers"
	"github.com/ctcl-atlas/atlas/internal/server/middleware"
	"github.com/ctcl-atlas/atlas/internal/server/sse"
	ws "github.com/ctcl-atlas/atlas/internal/server/websocket"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()

	logger.Debug().Msg("Creating new server instance")

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger, handlers.Explorer(app))
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Both transports carry the feed; explorer replies go only to the asking client.
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		app:            app,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now().UTC(),
	}
	if cfg.RateLimit > 0 {
		server.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)
	}

	if err := server.connectHooks(); err != nil {
		cancel()
		return nil, err
	}

	logger.Debug().Msg("Server instance created successfully")
	return server, nil
}

// connectHooks publishes computed verdicts and insights to the event feed.
func (s *Server) connectHooks() error {
	a, err := s.app.Atlas()
	if err != nil {
		return err
	}

	a.OnVerdict(func(v *compare.Verdict) {
		s.broker.Publish(events.VerdictComputed, map[string]any{
			"gene":        v.Gene,
			"target":      v.Target,
			"direction":   v.Direction,
			"significant": v.Significant,
		})
	})

	a.OnInsight(func(ins insight.Insight) {
		s.broker.Publish(events.InsightGenerated, map[string]any{
			"gene":     ins.Gene,
			"headline": ins.Headline,
			"trend":    ins.Trend,
		})
	})

	s.logger.Debug().Msg("Atlas hooks connected to event broker")
	return nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster,
// rate limiter cleanup).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")

	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	if s.rateLimiter != nil {
		go s.rateLimiter.Cleanup(s.ctx, 5*time.Minute)
	}

	s.logger.Debug().Msg("All background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services. Open WebSocket and SSE clients are
// closed by their owners as the services exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")

	s.cancel()

	for _, done := range []<-chan struct{}{s.broker.Done(), s.wsHub.Done(), s.sseBroadcaster.Done()} {
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn().Msg("Background services shutdown timed out")
			return ctx.Err()
		}
	}

	s.logger.Info().Msg("Background services shut down successfully")
	return nil
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
