package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"spiketrend/internal/model"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Series filter; empty means every series.
	mu     sync.RWMutex
	series map[string]bool
}

// clientMsg is a control message from the peer:
//
//	{"type":"SUBSCRIBE","series":["beer"]}
//	{"type":"UNSUBSCRIBE","series":["beer"]}
//	{"ping":1700000000000}
type clientMsg struct {
	Type   string   `json:"type"`
	Series []string `json:"series"`
	Ping   int64    `json:"ping"`
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel":     channel,
			"data":        entry.Data,
			"ts":          entry.TS.Format(time.RFC3339Nano),
			"channel_seq": entry.Seq,
			"initial":     true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

// matchesChannel reports whether the client wants messages on channel.
func (c *Client) matchesChannel(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.series) == 0 {
		return true
	}
	return c.series[strings.TrimPrefix(channel, model.ToggleChannel(""))]
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg clientMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}

		switch msg.Type {
		case "SUBSCRIBE":
			c.mu.Lock()
			for _, s := range msg.Series {
				c.series[s] = true
			}
			c.mu.Unlock()
			c.reply(map[string]interface{}{"type": "subscribed", "series": c.subscriptions()})

		case "UNSUBSCRIBE":
			c.mu.Lock()
			for _, s := range msg.Series {
				delete(c.series, s)
			}
			c.mu.Unlock()
			c.reply(map[string]interface{}{"type": "unsubscribed", "series": c.subscriptions()})

		default:
			if msg.Ping > 0 {
				c.reply(map[string]interface{}{
					"type":      "pong",
					"ping":      msg.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
			}
		}
	}
}

func (c *Client) subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.series))
	for s := range c.series {
		out = append(out, s)
	}
	return out
}

// reply queues a control response. Safe against a concurrent RemoveClient.
func (c *Client) reply(v interface{}) {
	b, _ := json.Marshal(v)
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}
