package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func analysis(t EventType, subject string, score int) *Event {
	return &Event{Type: t, Data: &Analysis{Subject: subject, RiskScore: score}}
}

func TestSubscription_Matches(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
		ev   *Event
		want bool
	}{
		{"all events", Subscription{AllEvents: true, MinScore: 99}, analysis(EventWalletAnalyzed, "0x1", 0), true},
		{"zero value", Subscription{}, &Event{Type: EventWalletAnalyzed}, true},
		{"type match", Subscription{EventTypes: []EventType{EventWalletAnalyzed}}, &Event{Type: EventWalletAnalyzed}, true},
		{"type mismatch", Subscription{EventTypes: []EventType{EventWalletAnalyzed}}, &Event{Type: EventTokenAnalyzed}, false},
		{"subject case-insensitive", Subscription{Subjects: []string{"0xABC"}}, analysis(EventWalletAnalyzed, "0xabc", 25), true},
		{"subject mismatch", Subscription{Subjects: []string{"0xABC"}}, analysis(EventWalletAnalyzed, "0xdef", 25), false},
		{"subject on token", Subscription{Subjects: []string{"0x2::sui::SUI"}}, analysis(EventTokenAnalyzed, "0x2::sui::SUI", 20), true},
		{"score above", Subscription{MinScore: 70}, analysis(EventTokenAnalyzed, "0x1::a::B", 90), true},
		{"score inclusive", Subscription{MinScore: 70}, analysis(EventTokenAnalyzed, "0x1::a::B", 70), true},
		{"score below", Subscription{MinScore: 70}, analysis(EventWalletAnalyzed, "0x1", 25), false},
		{"non-analysis data", Subscription{Subjects: []string{"0xabc"}, MinScore: 50}, &Event{Type: EventWalletAnalyzed, Data: "ping"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventTypeFor(t *testing.T) {
	if eventTypeFor("token") != EventTokenAnalyzed {
		t.Error("token kind should map to token_analyzed")
	}
	if eventTypeFor("wallet") != EventWalletAnalyzed {
		t.Error("wallet kind should map to wallet_analyzed")
	}
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func newTestClient(h *Hub, sub Subscription, buf int) *Client {
	return &Client{hub: h, send: make(chan []byte, buf), sub: sub}
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StatsInitial(t *testing.T) {
	h := NewHub(nil)
	if got := h.Stats(); got != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", got)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, Subscription{AllEvents: true}, 4)

	h.register <- c
	eventually(t, func() bool { return h.Stats().ConnectedClients == 1 }, "client never registered")
	if h.Stats().PeakClients != 1 {
		t.Errorf("expected peak 1, got %d", h.Stats().PeakClients)
	}

	h.unregister <- c
	eventually(t, func() bool { return h.Stats().ConnectedClients == 0 }, "client never unregistered")

	stats := h.Stats()
	if stats.PeakClients != 1 || stats.TotalClients != 1 {
		t.Errorf("unexpected stats after unregister: %+v", stats)
	}
	if _, open := <-c.send; open {
		t.Error("send channel should be closed on unregister")
	}
}

func TestHub_PublishAnalysisDelivers(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, Subscription{AllEvents: true}, 4)
	h.register <- c

	h.PublishAnalysis("wallet", "0xabc", 25, "LOW", map[string]any{"riskScore": 25})

	select {
	case msg := <-c.send:
		var got struct {
			Type EventType `json:"type"`
			Data Analysis  `json:"data"`
		}
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("bad message: %v", err)
		}
		if got.Type != EventWalletAnalyzed || got.Data.Subject != "0xabc" || got.Data.RiskLevel != "LOW" {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	eventually(t, func() bool { return h.Stats().TotalEvents == 1 }, "event not counted")
}

func TestHub_FilteredDelivery(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, Subscription{EventTypes: []EventType{EventTokenAnalyzed}}, 4)
	h.register <- c

	h.PublishAnalysis("wallet", "0x1", 80, "CRITICAL", nil)
	h.PublishAnalysis("token", "0x2::sui::SUI", 20, "LOW", nil)

	select {
	case msg := <-c.send:
		var got Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("bad message: %v", err)
		}
		if got.Type != EventTokenAnalyzed {
			t.Errorf("expected only token events, got %s", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("client should receive the token event")
	}

	select {
	case msg := <-c.send:
		t.Errorf("unexpected extra message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	h := startHub(t)
	slow := newTestClient(h, Subscription{AllEvents: true}, 1)
	h.register <- slow

	h.PublishAnalysis("wallet", "0x1", 10, "LOW", nil)
	h.PublishAnalysis("wallet", "0x2", 10, "LOW", nil)

	eventually(t, func() bool { return h.Stats().ConnectedClients == 0 }, "slow client was not dropped")
}

func TestHub_BroadcastQueueFull(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < eventBuffer+5; i++ {
		h.Broadcast(&Event{Type: EventWalletAnalyzed})
	}
	if len(h.events) != eventBuffer {
		t.Errorf("expected queue capped at %d, got %d", eventBuffer, len(h.events))
	}
}

func TestHub_StopsOnCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(h, Subscription{}, 1)

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	h.register <- c
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancel")
	}
	if _, open := <-c.send; open {
		t.Error("clients should be closed on shutdown")
	}

	w := httptest.NewRecorder()
	h.HandleWebSocket(w, httptest.NewRequest("GET", "/ws", nil))
	if w.Code != 503 {
		t.Errorf("expected 503 after shutdown, got %d", w.Code)
	}
}

func TestHub_RejectsOverCapacity(t *testing.T) {
	h := startHub(t)
	h.maxClients = 1
	h.register <- newTestClient(h, Subscription{}, 1)
	eventually(t, func() bool { return h.Stats().ConnectedClients == 1 }, "client never registered")

	w := httptest.NewRecorder()
	h.HandleWebSocket(w, httptest.NewRequest("GET", "/ws", nil))
	if w.Code != 503 {
		t.Errorf("expected 503 at capacity, got %d", w.Code)
	}
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	open := newUpgrader(nil)
	wildcard := newUpgrader([]string{"*"})
	restricted := newUpgrader([]string{"https://app.example"})

	req := httptest.NewRequest("GET", "http://api.example/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	if !open.CheckOrigin(req) || !wildcard.CheckOrigin(req) {
		t.Error("empty or wildcard allow list should accept any origin")
	}
	if restricted.CheckOrigin(req) {
		t.Error("origin off the allow list should be rejected")
	}

	req.Header.Set("Origin", "https://app.example")
	if !restricted.CheckOrigin(req) {
		t.Error("allowed origin should be accepted")
	}

	req.Header.Set("Origin", "http://api.example")
	if !restricted.CheckOrigin(req) {
		t.Error("same-host origin should be accepted")
	}

	req.Header.Del("Origin")
	if !restricted.CheckOrigin(req) {
		t.Error("non-browser clients should be accepted")
	}
}
