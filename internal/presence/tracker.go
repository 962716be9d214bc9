// Package presence tracks ephemeral typing state: who is typing in the
// active room (Tracker, fed by inbound typing frames) and whether the local
// participant is typing (TypingSignal, fed by input changes). Both are scoped
// to the active room and reset on room switch.
package presence

import (
	"sort"
	"sync"
)

// Tracker maps participant identity to current typing state for the active
// room. Updates are last-write-wins per participant; no timestamp
// reconciliation is performed. It is goroutine-safe.
type Tracker struct {
	mu     sync.Mutex
	typing map[string]bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		typing: make(map[string]bool),
	}
}

// Reset clears all typing state. Called unconditionally on room switch so
// stale indicators from a previous room never bleed into a new one.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.typing = make(map[string]bool)
}

// SetTyping records the latest typing state for a participant, overwriting
// any previous value.
func (tr *Tracker) SetTyping(user string, status bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.typing[user] = status
}

// ActiveTypers returns the participants currently typing, sorted, excluding
// the given local participant so a client never displays itself as typing.
func (tr *Tracker) ActiveTypers(excluding string) []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	users := make([]string, 0, len(tr.typing))
	for user, status := range tr.typing {
		if status && user != excluding {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users
}
