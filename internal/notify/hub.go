package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"invoicer/internal/log"
	"invoicer/internal/metrics"
	"invoicer/internal/search"
	"invoicer/internal/services"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	sendBuffer    = 16
	searchTimeout = 7 * time.Second
)

// Searcher runs a global search for a websocket client.
type Searcher interface {
	Search(ctx context.Context, query string) (services.SearchResults, error)
}

// Inbound is a message sent by a websocket client.
//
//	{"type":"search","q":"acme"}                  debounced search
//	{"type":"search","q":"acme","immediate":true} skip the debounce window
//	{"type":"mark_read","id":"..."}
//	{"type":"mark_all_read"}
//	{"type":"ping"}
type Inbound struct {
	Type      string `json:"type"`
	Query     string `json:"q,omitempty"`
	Immediate bool   `json:"immediate,omitempty"`
	ID        string `json:"id,omitempty"`
}

// Outbound is a message pushed to a websocket client.
type Outbound struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Query  string `json:"query,omitempty"`
	Unread *int   `json:"unread,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hub fans feed notifications out to websocket clients and serves
// per-connection debounced search.
type Hub struct {
	feed     *Feed
	searcher Searcher
	delay    time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type HubOption func(*Hub)

// WithSearchDelay overrides the debounce window.
func WithSearchDelay(d time.Duration) HubOption {
	return func(h *Hub) { h.delay = d }
}

// WithCheckOrigin sets the origin policy of the websocket upgrade.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func NewHub(feed *Feed, searcher Searcher, opts ...HubOption) *Hub {
	h := &Hub{
		feed:     feed,
		searcher: searcher,
		delay:    search.DefaultDelay,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		clients:  make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	feed.OnAdd(h.broadcast)
	return h
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type client struct {
	hub    *Hub
	ctx    context.Context
	conn   *websocket.Conn
	send   chan Outbound
	search *search.Debouncer[services.SearchResults]
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}

	// The connection outlives the request but keeps its logger and request id.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	logger := log.FromContext(ctx)

	c := &client{hub: h, ctx: ctx, conn: conn, send: make(chan Outbound, sendBuffer)}
	c.search = search.NewDebouncer(h.delay, h.runSearch, c.deliverSearch)

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.DebugContext(ctx, "WebSocket client connected", "remote_addr", r.RemoteAddr)

	go c.writePump()

	unread := h.feed.Unread()
	c.trySend(Outbound{Type: "hello", Unread: &unread})
	c.readPump(ctx)

	// Stop searches before closing send so no result lands on a closed channel.
	cancel()
	c.search.Close()
	h.unregister(c)
	logger.DebugContext(ctx, "WebSocket client disconnected", "remote_addr", r.RemoteAddr)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(n Notification) {
	unread := h.feed.Unread()
	msg := Outbound{Type: "notification", Unread: &unread, Data: n}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.trySend(msg)
	}
}

func (h *Hub) runSearch(ctx context.Context, query string) (services.SearchResults, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()
	return h.searcher.Search(ctx, query)
}

// trySend never blocks; a client that cannot keep up loses messages.
func (c *client) trySend(m Outbound) {
	select {
	case c.send <- m:
	default:
		metrics.EventsDropped.WithLabelValues("websocket").Inc()
	}
}

func (c *client) deliverSearch(r search.Result[services.SearchResults]) {
	msg := Outbound{Type: "search_results", Seq: r.Seq, Query: r.Query, Data: r.Value}
	if r.Err != nil {
		msg = Outbound{Type: "search_error", Seq: r.Seq, Query: r.Query, Error: "search failed"}
		log.FromContext(c.ctx).WarnContext(c.ctx, "Search failed", "query", r.Query, "error", r.Err)
	}
	c.trySend(msg)
}

func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.FromContext(ctx).WarnContext(ctx, "WebSocket read failed", "error", err)
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.trySend(Outbound{Type: "error", Error: "invalid message"})
			continue
		}
		c.handle(ctx, in)
	}
}

func (c *client) handle(ctx context.Context, in Inbound) {
	switch in.Type {
	case "search":
		if in.Immediate {
			c.search.Flush(ctx, in.Query)
		} else {
			c.search.Submit(ctx, in.Query)
		}
	case "mark_read":
		if err := c.hub.feed.MarkRead(in.ID); err != nil {
			c.trySend(Outbound{Type: "error", Error: err.Error()})
			return
		}
		unread := c.hub.feed.Unread()
		c.trySend(Outbound{Type: "unread", Unread: &unread})
	case "mark_all_read":
		c.hub.feed.MarkAllRead()
		unread := 0
		c.trySend(Outbound{Type: "unread", Unread: &unread})
	case "ping":
		c.trySend(Outbound{Type: "pong"})
	default:
		c.trySend(Outbound{Type: "error", Error: "unknown message type"})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
