// Package realtime streams completed analyses to WebSocket clients.
//
// Dashboards subscribe instead of polling /api/history, optionally narrowed
// to event types, specific subjects or a minimum risk score.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/security"
)

const (
	// MaxClients caps concurrent WebSocket connections.
	MaxClients = 10000

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
	eventBuffer    = 256
)

// expectedClose lists close codes that are not worth a warning.
var expectedClose = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

// newUpgrader accepts the same origins as the CORS middleware, plus the
// server's own host. Non-browser clients send no Origin and are accepted.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	origins := security.NewOrigins(allowedOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			switch origin {
			case "", "http://" + r.Host, "https://" + r.Host:
				return true
			}
			return origins.Allows(origin)
		},
	}
}

// EventType names a kind of feed event.
type EventType string

const (
	EventWalletAnalyzed EventType = "wallet_analyzed"
	EventTokenAnalyzed  EventType = "token_analyzed"
)

// eventTypeFor maps a history kind ("wallet", "token") to its event type.
func eventTypeFor(kind string) EventType {
	if kind == "token" {
		return EventTokenAnalyzed
	}
	return EventWalletAnalyzed
}

// Event is one message on the feed.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Analysis is the payload of the *_analyzed events.
type Analysis struct {
	Subject   string `json:"subject"`
	RiskScore int    `json:"riskScore"`
	RiskLevel string `json:"riskLevel"`
	Result    any    `json:"result"`
}

// Subscription narrows what a client receives. The zero value receives
// everything.
type Subscription struct {
	AllEvents  bool        `json:"allEvents"`
	EventTypes []EventType `json:"eventTypes"`
	Subjects   []string    `json:"subjects"`
	MinScore   int         `json:"minScore"`
}

// Matches reports whether ev passes every filter in s. Subject and score
// filters only apply to analysis payloads.
func (s Subscription) Matches(ev *Event) bool {
	if s.AllEvents {
		return true
	}
	if len(s.EventTypes) > 0 && !slices.Contains(s.EventTypes, ev.Type) {
		return false
	}

	a, ok := ev.Data.(*Analysis)
	if !ok {
		return true
	}
	if len(s.Subjects) > 0 && !slices.ContainsFunc(s.Subjects, func(subject string) bool {
		return strings.EqualFold(subject, a.Subject)
	}) {
		return false
	}
	return a.RiskScore >= s.MinScore
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu  sync.RWMutex
	sub Subscription
}

func (c *Client) subscription() Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub
}

func (c *Client) setSubscription(sub Subscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

// Stats summarizes hub activity for the health endpoint.
type Stats struct {
	ConnectedClients int   `json:"connectedClients"`
	TotalEvents      int64 `json:"totalEvents"`
	TotalClients     int64 `json:"totalClients"`
	PeakClients      int64 `json:"peakClients"`
}

// Hub fans analysis events out to subscribed clients.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	maxClients int

	mu      sync.RWMutex
	clients map[*Client]struct{}

	events     chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	totalEvents  atomic.Int64
	totalClients atomic.Int64
	peakClients  atomic.Int64
}

// NewHub creates a hub. An empty allowedOrigins accepts every origin.
func NewHub(logger *slog.Logger, allowedOrigins ...string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		upgrader:   newUpgrader(allowedOrigins),
		maxClients: MaxClients,
		clients:    make(map[*Client]struct{}),
		events:     make(chan *Event, eventBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and events until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("realtime hub stopped")
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.events:
			h.fanOut(ev)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.totalClients.Add(1)
	if int64(n) > h.peakClients.Load() {
		h.peakClients.Store(int64(n))
	}
	metrics.ActiveWebSocketClients.Set(float64(n))
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	h.drop(c)
	n := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveWebSocketClients.Set(float64(n))
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// drop closes c's send channel; writePump then sends a close frame.
// Callers hold h.mu.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		h.drop(c)
	}
	h.mu.Unlock()
	metrics.ActiveWebSocketClients.Set(0)
}

// fanOut delivers ev to matching clients. Clients whose buffer is full are
// disconnected rather than allowed to stall the hub.
func (h *Hub) fanOut(ev *Event) {
	h.totalEvents.Add(1)
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event failed", "type", ev.Type, "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscription().Matches(ev) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		h.drop(c)
	}
	h.mu.Unlock()
	h.logger.Warn("dropped slow websocket clients", "count", len(slow))
}

// Broadcast queues ev for delivery. Events are dropped when the queue is full.
func (h *Hub) Broadcast(ev *Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event queue full, dropping event", "type", ev.Type)
	}
}

// PublishAnalysis broadcasts a completed wallet or token analysis.
func (h *Hub) PublishAnalysis(kind, subject string, score int, level string, result any) {
	h.Broadcast(&Event{
		Type:      eventTypeFor(kind),
		Timestamp: time.Now().UTC(),
		Data: &Analysis{
			Subject:   subject,
			RiskScore: score,
			RiskLevel: level,
			Result:    result,
		},
	})
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()

	return Stats{
		ConnectedClients: n,
		TotalEvents:      h.totalEvents.Load(),
		TotalClients:     h.totalClients.Load(),
		PeakClients:      h.peakClients.Load(),
	}
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.Stats().ConnectedClients >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		sub:  Subscription{AllEvents: true},
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump applies subscription updates sent by the client. Messages that
// are not a valid Subscription are ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, expectedClose...) {
				c.hub.logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		var sub Subscription
		if json.Unmarshal(msg, &sub) == nil {
			c.setSubscription(sub)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Debug("websocket write failed", "error", err)
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
