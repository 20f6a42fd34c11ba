package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/server/events"
	"github.com/ctcl-atlas/atlas/internal/server/response"
	ws "github.com/ctcl-atlas/atlas/internal/server/websocket"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// MessageInsight is the explorer reply type carrying an insight.
const MessageInsight = "insight"

// Explorer answers explorer selections with the insight for the selected
// gene. Failures become error messages carrying the same body as the REST API.
func Explorer(app application.Application) ws.Handler {
	return func(ctx context.Context, req ws.Request) ws.Message {
		ins, err := explore(ctx, app, req)
		if err != nil {
			_, body := response.ErrorBody(err)
			return ws.Message{Type: ws.MessageError, Data: body}
		}
		return ws.Message{Type: MessageInsight, Data: ins}
	}
}

func explore(ctx context.Context, app application.Application, req ws.Request) (any, error) {
	a, err := app.Atlas()
	if err != nil {
		return nil, err
	}
	target, refs, err := groupsOf(req.Target, req.Refs)
	if err != nil {
		return nil, err
	}
	gene := expression.NormalizeGene(req.Gene)
	return a.InsightRequest(logging.WithGene(ctx, gene), compare.Request{
		Gene:       gene,
		Target:     target,
		References: refs,
	})
}

// HandleExplorer handles WebSocket connections at /api/v1/explore/ws.
// @Summary Gene explorer
// @Description WebSocket explorer: send {"seq":n,"gene":"TOX"} and receive the insight; the connection also carries the live event feed
// @Tags explore
// @Success 101 "Switching Protocols"
// @Router /api/v1/explore/ws [get].
func (h *Handlers) HandleExplorer(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	// The request context ends with the handler; the client lives on its own.
	client := ws.NewClient(context.WithoutCancel(r.Context()), uuid.NewString(), h.wsHub, conn)
	if !h.wsHub.Register(client) {
		_ = conn.Close()
		return
	}

	h.broker.Publish(events.ClientConnected, map[string]any{
		"client_id": client.ID(),
	})

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles Server-Sent Events at /api/v1/updates/stream.
// @Summary Event stream
// @Description Server-Sent Events stream of computed verdicts and generated insights
// @Tags updates
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/v1/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
