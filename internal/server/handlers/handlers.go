// Package handlers provides HTTP request handlers for the atlas API.
package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas"
	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/server/cache"
	"github.com/ctcl-atlas/atlas/internal/server/events"
	"github.com/ctcl-atlas/atlas/internal/server/response"
	"github.com/ctcl-atlas/atlas/internal/server/sse"
	ws "github.com/ctcl-atlas/atlas/internal/server/websocket"
	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	app            application.Application
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	app application.Application,
	cache *cache.Cache,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
	startTime time.Time,
) *Handlers {
	return &Handlers{
		app:            app,
		cache:          cache,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      startTime,
	}
}

// atlas returns the application's atlas, writing a 503 when it is unavailable.
func (h *Handlers) atlas(w http.ResponseWriter, r *http.Request) (atlas.Atlas, bool) {
	a, err := h.app.Atlas()
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("Atlas unavailable")
		response.ServiceUnavailable(w, "Dataset not available")
		return nil, false
	}
	return a, true
}

// geneParam reads and validates the {gene} path segment.
func geneParam(r *http.Request) (string, error) {
	gene := expression.NormalizeGene(r.PathValue("gene"))
	if gene == "" {
		return "", errors.NewValidationError("gene", gene, "gene symbol is required")
	}
	if len(gene) > constants.MaxGeneSymbolLength {
		return "", errors.NewValidationError("gene", gene, "gene symbol is too long")
	}
	return gene, nil
}
