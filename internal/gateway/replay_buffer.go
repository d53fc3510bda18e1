package gateway

import "sync"

// replayEntry is one broadcast envelope.
type replayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the last N envelopes of one channel so clients that
// detect a channel_seq gap can backfill via /api/missed. Safe for
// concurrent use.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	head    int // oldest entry once the buffer has wrapped
	size    int
}

// NewReplayBuffer creates a replay buffer with the given capacity
// (default 500).
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{entries: make([]replayEntry, 0, capacity), size: capacity}
}

// Push stores a copy of data, evicting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	e := replayEntry{Seq: seq, Data: append([]byte(nil), data...)}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.entries) < rb.size {
		rb.entries = append(rb.entries, e)
		return
	}
	rb.entries[rb.head] = e
	rb.head = (rb.head + 1) % rb.size
}

// Range returns the entries with fromSeq <= seq <= toSeq, oldest first.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []replayEntry
	n := len(rb.entries)
	for i := 0; i < n; i++ {
		e := rb.entries[(rb.head+i)%n]
		if e.Seq >= fromSeq && e.Seq <= toSeq {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries currently held.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.entries)
}
