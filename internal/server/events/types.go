// Package events fans query results out to live transports.
//
// Atlas hooks publish computed verdicts and insights to a Broker, which hands
// each event to every subscriber (the WebSocket hub, the SSE broadcaster).
// Dashboards watching the feed see every comparison any client runs.
package events

import "time"

// EventType represents the type of atlas event.
type EventType string

// Event types.
const (
	// Query events (from atlas hooks).
	VerdictComputed  EventType = "verdict.computed"
	InsightGenerated EventType = "insight.generated"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event is one published event. Seq increases by one per published event.
type Event struct {
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
