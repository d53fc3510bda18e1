package gateway

import (
	"encoding/json"
	"strconv"
	"time"
)

// Broadcaster constructs envelope JSON and sends filtered messages to clients.
type Broadcaster struct {
	hub *Hub
	now func() time.Time
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, now: time.Now}
}

// Broadcast sends data on a channel to all subscribed clients as
// {"channel":...,"data":...,"ts":...,"seq":N,"channel_seq":M}.
func (b *Broadcaster) Broadcast(channel string, data []byte) {
	now := b.now().UTC()

	if srcTS := extractTS(data); !srcTS.IsZero() {
		latencyMs := float64(now.Sub(srcTS).Microseconds()) / 1000.0
		if latencyMs >= 0 {
			b.hub.Latency.Record(latencyMs)
		}
	}

	b.hub.mu.Lock()
	b.hub.channelSeqs[channel]++
	channelSeq := b.hub.channelSeqs[channel]
	b.hub.latest[channel] = latestEntry{Data: data, TS: now, Seq: channelSeq}
	b.hub.seq++
	seq := b.hub.seq

	rb, exists := b.hub.replayBufs[channel]
	if !exists {
		rb = NewReplayBuffer(500)
		b.hub.replayBufs[channel] = rb
	}
	b.hub.mu.Unlock()

	buf := buildEnvelope(channel, data, now, seq, channelSeq)
	rb.Push(channelSeq, buf)

	dropped := 0
	b.hub.mu.RLock()
	for client := range b.hub.clients {
		if !client.matchesChannel(channel) {
			continue
		}
		select {
		case client.send <- buf:
		default:
			dropped++
		}
	}
	b.hub.mu.RUnlock()

	if dropped > 0 && b.hub.prom != nil {
		b.hub.prom.WSDroppedTotal.Add(float64(dropped))
	}
}

// buildEnvelope hand-crafts the envelope; data is embedded as raw JSON and
// the channel, which carries a caller-chosen series name, is JSON-quoted.
func buildEnvelope(channel string, data []byte, now time.Time, seq, channelSeq int64) []byte {
	name, _ := json.Marshal(channel)
	buf := make([]byte, 0, len(name)+len(data)+160)
	buf = append(buf, `{"channel":`...)
	buf = append(buf, name...)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	buf = append(buf, '}')
	return buf
}

// extractTS pulls the "ts" field of a payload, zero if absent.
func extractTS(data []byte) time.Time {
	var partial struct {
		TS time.Time `json:"ts"`
	}
	if err := json.Unmarshal(data, &partial); err == nil && !partial.TS.IsZero() {
		return partial.TS
	}
	return time.Time{}
}
