package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newRunning(t *testing.T, heartbeat time.Duration) *Broadcaster {
	t.Helper()
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	b.Heartbeat = heartbeat
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-b.Done()
	})
	return b
}

func subscribe(t *testing.T, b *Broadcaster, after uint64) chan Event {
	t.Helper()
	ch := make(chan Event, clientBuffer)
	b.join <- subscription{ch: ch, after: after}
	return ch
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := newRunning(t, 0)

	ch := subscribe(t, b, 0)
	waitFor(t, func() bool { return b.ClientCount() == 1 })

	b.Broadcast(Event{Event: "verdict.computed", ID: "1", Data: map[string]any{"gene": "TOX"}})

	if got := receive(t, ch); got.Event != "verdict.computed" || got.ID != "1" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestBroadcaster_Shutdown(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	c1 := subscribe(t, b, 0)
	c2 := subscribe(t, b, 0)
	waitFor(t, func() bool { return b.ClientCount() == 2 })

	cancel()
	<-b.Done()

	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after shutdown", n)
	}
	for _, ch := range []chan Event{c1, c2} {
		if _, ok := <-ch; ok {
			t.Error("client channel still open after shutdown")
		}
	}
}

func TestBroadcaster_Replay(t *testing.T) {
	b := newRunning(t, 0)

	// A live client observes the events, so history is filled once it has them.
	watcher := subscribe(t, b, 0)
	for i := 1; i <= 3; i++ {
		b.Broadcast(Event{Event: "insight.generated", ID: strconv.Itoa(i), Data: i})
	}
	b.Broadcast(Event{Event: "note", Data: "no id"})
	for range 4 {
		receive(t, watcher)
	}

	late := subscribe(t, b, 1)
	for _, want := range []string{"2", "3"} {
		if got := receive(t, late); got.ID != want {
			t.Errorf("replayed id %q, want %q", got.ID, want)
		}
	}
	select {
	case e := <-late:
		t.Errorf("unexpected extra replay %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_HistoryBounded(t *testing.T) {
	b := &Broadcaster{}
	for i := 1; i <= HistorySize+10; i++ {
		b.remember(Event{ID: strconv.Itoa(i)})
	}
	if len(b.history) != HistorySize {
		t.Fatalf("history length = %d, want %d", len(b.history), HistorySize)
	}
	if b.history[0].ID != "11" {
		t.Errorf("oldest kept id = %s, want 11", b.history[0].ID)
	}
}

func TestBroadcaster_ServeHTTP(t *testing.T) {
	b := newRunning(t, 0)

	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		t.Helper()
		if !lines.Scan() {
			t.Fatalf("stream ended: %v", lines.Err())
		}
		return lines.Text()
	}

	if got := next(); got != "event: connected" {
		t.Fatalf("first line = %q", got)
	}
	if got := next(); !strings.HasPrefix(got, "data: ") {
		t.Fatalf("second line = %q", got)
	}
	next()

	waitFor(t, func() bool { return b.ClientCount() == 1 })
	b.Broadcast(Event{Event: "insight.generated", ID: "7", Data: map[string]string{"gene": "CCR4"}})

	for _, want := range []string{"event: insight.generated", "id: 7", `data: {"gene":"CCR4"}`} {
		if got := next(); got != want {
			t.Errorf("line = %q, want %q", got, want)
		}
	}
}

func TestBroadcaster_Heartbeat(t *testing.T) {
	b := newRunning(t, 20*time.Millisecond)

	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() {
		if lines.Text() == ": ping" {
			return
		}
	}
	t.Fatalf("stream ended without heartbeat: %v", lines.Err())
}
