package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"options-calendar-bot/internal/state"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
)

// hub fans monitoring reports out to websocket subscribers. Slow subscribers
// lose messages rather than block the monitor.
type hub struct {
	log   *zap.Logger
	store state.Store

	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
}

func newHub(log *zap.Logger, store state.Store) *hub {
	return &hub{log: log, store: store, subs: make(map[chan []byte]struct{})}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := h.subscribe()
	if !ok {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.unsubscribe(ch)
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	ctx := conn.CloseRead(r.Context())

	if payload, ok := h.cached(ctx); ok {
		if err := write(ctx, conn, payload); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			if err := write(ctx, conn, payload); err != nil {
				h.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// cached returns the last stored report so new subscribers start with data.
func (h *hub) cached(ctx context.Context) ([]byte, bool) {
	snap, ok, err := state.LoadMonitorSnapshot(ctx, h.store)
	if err != nil || !ok {
		return nil, false
	}
	payload, err := json.Marshal(newMonitorResponse(snap.Config, snap.Mode, snap.Report))
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (h *hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("broadcast encode failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			h.log.Debug("websocket subscriber lagging, dropping report")
		}
	}
}

func (h *hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

func (h *hub) subscribe() (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan []byte, subscriberBuffer)
	h.subs[ch] = struct{}{}
	return ch, true
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func write(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
