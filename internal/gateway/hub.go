package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"spiketrend/internal/metrics"
	"spiketrend/internal/model"
	redisstore "spiketrend/internal/store/redis"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients and toggle fan-out. Toggles arrive either
// from local runs (BroadcastToggle) or from Redis PubSub (Relay).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64

	// Per-channel replay buffers for gap backfill
	replayBufs map[string]*ReplayBuffer

	// Toggle timestamp to WS emit latency
	Latency *LatencyTracker

	Broadcaster *Broadcaster

	prom *metrics.Metrics
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64 // per-channel seq for gap detection
}

// NewHub creates a new Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		Latency:     NewLatencyTracker(10000),
		prom:        m,
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// BroadcastToggle fans a toggle out on its series channel.
func (h *Hub) BroadcastToggle(tg model.Toggle) {
	h.broadcast(model.ToggleChannel(tg.Series), tg.JSON())
}

// Relay forwards toggles published to Redis by any process. Blocks until
// ctx is cancelled.
func (h *Hub) Relay(ctx context.Context, r *redisstore.Reader) {
	in := make(chan redisstore.ToggleMessage, 1024)
	go func() {
		if err := r.SubscribeToggles(ctx, in); err != nil {
			log.Printf("[gateway] toggle subscription ended: %v", err)
		}
	}()
	log.Println("[gateway] relaying pub:toggle:* to ws clients")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-in:
			h.broadcast(model.ToggleChannel(msg.Series), msg.Payload)
		}
	}
}

// broadcast delegates to Broadcaster.
func (h *Hub) broadcast(channel string, data []byte) {
	h.Broadcaster.Broadcast(channel, data)
}

// HandleWSRequest registers an upgraded connection. Channels updated after
// lastTS (RFC3339Nano, optional) are sent immediately.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, lastTS string) {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    h,
		series: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.prom != nil {
		h.prom.WSClients.Set(float64(count))
	}

	log.Printf("[gateway] ws client connected (%d total)", count)

	client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()
	if h.prom != nil {
		h.prom.WSClients.Set(float64(count))
	}
}

// GetLatestAll returns snapshot of all latest channel data.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// GetReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartMetricsBroadcast sends runtime stats to all WS clients every interval.
func (h *Hub) StartMetricsBroadcast(ctx context.Context, start time.Time, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := CollectMetrics(start)
			m.WSClients = h.ClientCount()
			m.LatencyP50, m.LatencyP95, m.LatencyP99 = h.Latency.Percentiles()
			envelope, _ := json.Marshal(map[string]interface{}{
				"type":    "metrics",
				"metrics": m,
			})
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- envelope:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}
