// Package sse streams the atlas event feed as Server-Sent Events.
//
// The broadcaster keeps the most recent events so that a browser which
// reconnects with a Last-Event-ID header receives the comparisons it missed.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// HistorySize is the number of events kept for Last-Event-ID replay.
	HistorySize = 64

	// DefaultHeartbeat is the interval of keep-alive comments on idle streams.
	DefaultHeartbeat = 25 * time.Second

	clientBuffer = 256
)

// Event is one SSE message. ID, when numeric, is used for replay.
type Event struct {
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data"`
}

type subscription struct {
	ch    chan Event
	after uint64
}

// Broadcaster fans events out to connected SSE clients. All client and
// history state is owned by Run.
type Broadcaster struct {
	// Heartbeat is the keep-alive interval. Zero disables heartbeats.
	Heartbeat time.Duration

	clients map[chan Event]struct{}
	history []Event
	join    chan subscription
	leave   chan chan Event
	events  chan Event
	done    chan struct{}
	count   sync.RWMutex
	n       int
	logger  *zerolog.Logger
}

// NewBroadcaster creates a broadcaster. Clients may connect before Run starts.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		Heartbeat: DefaultHeartbeat,
		clients:   make(map[chan Event]struct{}),
		join:      make(chan subscription, 10),
		leave:     make(chan chan Event, 10),
		events:    make(chan Event, clientBuffer),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			for ch := range b.clients {
				close(ch)
			}
			b.clients = nil
			b.setCount(0)
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case sub := <-b.join:
			b.clients[sub.ch] = struct{}{}
			b.setCount(len(b.clients))
			replayed := b.replay(sub)
			b.logger.Info().
				Int("total_clients", len(b.clients)).
				Int("replayed", replayed).
				Msg("SSE client connected")

		case ch := <-b.leave:
			if _, ok := b.clients[ch]; ok {
				delete(b.clients, ch)
				close(ch)
			}
			b.setCount(len(b.clients))
			b.logger.Info().Int("total_clients", len(b.clients)).Msg("SSE client disconnected")

		case event := <-b.events:
			b.remember(event)
			for ch := range b.clients {
				select {
				case ch <- event:
				default:
					b.logger.Warn().Str("event", event.Event).Msg("SSE client buffer full, event skipped")
				}
			}
		}
	}
}

// replay sends the remembered events newer than sub.after.
func (b *Broadcaster) replay(sub subscription) int {
	if sub.after == 0 {
		return 0
	}
	sent := 0
	for _, event := range b.history {
		if id, err := strconv.ParseUint(event.ID, 10, 64); err != nil || id <= sub.after {
			continue
		}
		select {
		case sub.ch <- event:
			sent++
		default:
			return sent
		}
	}
	return sent
}

func (b *Broadcaster) remember(event Event) {
	if event.ID == "" {
		return
	}
	if len(b.history) == HistorySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:HistorySize-1]
	}
	b.history = append(b.history, event)
}

func (b *Broadcaster) setCount(n int) {
	b.count.Lock()
	b.n = n
	b.count.Unlock()
}

// Broadcast queues an event for every client. It never blocks; when the
// queue is full the event is dropped and logged.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Str("event", event.Event).Msg("SSE broadcast channel full, event dropped")
	}
}

// Done is closed when Run returns.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.count.RLock()
	defer b.count.RUnlock()
	return b.n
}

// ServeHTTP streams events until the client disconnects or the broadcaster
// stops. The Last-Event-ID header (or lastEventId query parameter, for
// clients that cannot set headers) requests replay of newer events.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	lastID := r.Header.Get("Last-Event-ID")
	if lastID == "" {
		lastID = r.URL.Query().Get("lastEventId")
	}
	after, _ := strconv.ParseUint(lastID, 10, 64)

	// Streams outlive the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, clientBuffer)
	select {
	case b.join <- subscription{ch: ch, after: after}:
	case <-b.done:
		http.Error(w, "Event stream stopped", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case b.leave <- ch:
		case <-b.done:
		}
	}()

	b.write(w, Event{
		Event: "connected",
		Data: map[string]any{
			"message":   "Connected to the atlas event stream",
			"timestamp": time.Now().UTC(),
		},
	})
	flusher.Flush()

	var heartbeat <-chan time.Time
	if b.Heartbeat > 0 {
		ticker := time.NewTicker(b.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			b.write(w, event)
			flusher.Flush()
		case <-heartbeat:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (b *Broadcaster) write(w http.ResponseWriter, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to marshal SSE event data")
		return
	}
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
