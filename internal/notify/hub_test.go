package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"invoicer/internal/core"
	"invoicer/internal/log"
	"invoicer/internal/search"
	"invoicer/internal/services"
)

type fakeSearcher struct {
	calls atomic.Int32
	block chan struct{}
}

func (s *fakeSearcher) Search(ctx context.Context, q string) (services.SearchResults, error) {
	s.calls.Add(1)
	if q == "slow" && s.block != nil {
		select {
		case <-ctx.Done():
		case <-s.block:
		}
	}
	return services.SearchResults{Query: q, Clients: []core.Client{{Name: q}}}, nil
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	hello := read(t, conn)
	if hello.Type != "hello" {
		t.Fatalf("first message = %q, want hello", hello.Type)
	}
	return conn
}

type received struct {
	Type   string         `json:"type"`
	Seq    uint64         `json:"seq"`
	Query  string         `json:"query"`
	Unread *int           `json:"unread"`
	Data   map[string]any `json:"data"`
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m received
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

// send writes a raw client frame so the test sees the wire format.
func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write %s: %v", frame, err)
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubPushesNotifications(t *testing.T) {
	feed := NewFeed(0)
	h := NewHub(feed, &fakeSearcher{})
	conn := dial(t, h)
	waitClients(t, h, 1)

	feed.Add(Notification{Kind: InvoicePaid, Title: "Invoice paid", EntityID: "INV-0001"})

	m := read(t, conn)
	if m.Type != "notification" || m.Data["entity_id"] != "INV-0001" {
		t.Fatalf("unexpected message %+v", m)
	}
	if m.Unread == nil || *m.Unread != 1 {
		t.Errorf("unread = %v, want 1", m.Unread)
	}

	send(t, conn, `{"type":"mark_all_read"}`)
	m = read(t, conn)
	if m.Type != "unread" || *m.Unread != 0 || feed.Unread() != 0 {
		t.Errorf("mark_all_read: %+v, feed unread %d", m, feed.Unread())
	}
}

func TestHubDebouncesSearch(t *testing.T) {
	s := &fakeSearcher{}
	h := NewHub(NewFeed(0), s, WithSearchDelay(30*time.Millisecond))
	conn := dial(t, h)

	send(t, conn, `{"type":"search","q":"a"}`)
	send(t, conn, `{"type":"search","q":"ac"}`)
	send(t, conn, `{"type":"search","q":"acme"}`)
	m := read(t, conn)
	if m.Type != "search_results" || m.Query != "acme" || m.Seq != 1 {
		t.Fatalf("unexpected message %+v", m)
	}
	if n := s.calls.Load(); n != 1 {
		t.Errorf("searcher called %d times, want 1", n)
	}
	if clients, _ := m.Data["clients"].([]any); len(clients) != 1 {
		t.Errorf("results = %+v, want one client match for acme", m.Data)
	}
}

func TestHubDropsStaleSearch(t *testing.T) {
	s := &fakeSearcher{block: make(chan struct{})}
	defer close(s.block)
	h := NewHub(NewFeed(0), s)
	conn := dial(t, h)

	send(t, conn, `{"type":"search","q":"slow","immediate":true}`)
	send(t, conn, `{"type":"search","q":"fast","immediate":true}`)

	m := read(t, conn)
	if m.Query != "fast" || m.Seq != 2 {
		t.Fatalf("expected only the latest search, got %+v", m)
	}
	send(t, conn, `{"type":"ping"}`)
	if m := read(t, conn); m.Type != "pong" {
		t.Fatalf("expected pong after the fresh result, got %+v", m)
	}
}

func TestHubUnregistersOnClose(t *testing.T) {
	h := NewHub(NewFeed(0), &fakeSearcher{})
	conn := dial(t, h)
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)
}

func TestSearchFailureLogsWithConnectionContext(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentHTTP}).With(log.FieldRequestID, "req_ws")
	c := &client{ctx: log.NewContext(context.Background(), logger), send: make(chan Outbound, 1)}

	c.deliverSearch(search.Result[services.SearchResults]{Seq: 3, Query: "acme", Err: errors.New("db locked")})

	m := <-c.send
	if m.Type != "search_error" || m.Seq != 3 || m.Query != "acme" {
		t.Errorf("unexpected message %+v", m)
	}
	if out := buf.String(); !strings.Contains(out, "request_id=req_ws") || !strings.Contains(out, "Search failed") {
		t.Errorf("log line lacks the request id: %q", out)
	}
}
