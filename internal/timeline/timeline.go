// Package timeline maintains the ordered message view for the active room.
// It is an append-only store: messages arrive either as a one-time history
// replay after connect (Hydrate) or as live events (Append), and are never
// reordered or removed for the lifetime of a connection.
package timeline

import (
	"sync"

	"github.com/roomchat/chat-client/internal/protocol"
)

// Message is a single timeline entry. Ordering is receipt order, not
// timestamp order.
type Message struct {
	User string
	Text string
	File *protocol.FileRef
}

// Timeline stores the active room's messages in receipt order. It is
// goroutine-safe.
type Timeline struct {
	mu   sync.Mutex
	msgs []Message
}

// New creates an empty Timeline.
func New() *Timeline {
	return &Timeline{}
}

// Reset discards all messages. Called on room switch before the new
// connection's history arrives.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msgs = nil
}

// Hydrate replaces the entire sequence with the given messages, preserving
// their order. It is used exactly once per connection, on receipt of the
// history frame; it does not merge with prior state.
func (t *Timeline) Hydrate(msgs []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msgs = make([]Message, len(msgs))
	copy(t.msgs, msgs)
}

// Append adds a live message to the end of the timeline. No deduplication is
// performed; the transport is assumed to deliver each frame at most once.
func (t *Timeline) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msgs = append(t.msgs, msg)
}

// Snapshot returns a copy of the current sequence in receipt order.
func (t *Timeline) Snapshot() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages currently held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.msgs)
}
