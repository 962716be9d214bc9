// Package session orchestrates the client's live chat state. A Manager owns
// the active room selection, drives the connection lifecycle on room change,
// routes inbound frames to the timeline and presence tracker, and exposes the
// outbound actions (send message, set typing, switch room) consumed by the
// UI layer. Exactly one Manager exists per authenticated client: it is
// created at login and destroyed at logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roomchat/chat-client/internal/directory"
	"github.com/roomchat/chat-client/internal/metrics"
	"github.com/roomchat/chat-client/internal/presence"
	"github.com/roomchat/chat-client/internal/protocol"
	"github.com/roomchat/chat-client/internal/timeline"
	"github.com/roomchat/chat-client/internal/transport"
)

// ---------------------------------------------------------------------------
// Connection state
// ---------------------------------------------------------------------------

// State is the session's view of the connection.
type State int

const (
	// StateIdle means no room has been selected yet.
	StateIdle State = iota

	// StateConnected means the active room has a live connection.
	StateConnected

	// StateDisconnected means the active room's connection ended. Live
	// updates have stopped; the hydrated timeline remains readable.
	// Re-selecting the room is the only reconnect path.
	StateDisconnected
)

// String returns a short label for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by SendMessage when no live connection exists.
var ErrNotConnected = errors.New("session: not connected to a room")

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Config carries everything a Manager needs: where to connect and who the
// local participant is.
type Config struct {
	// ServerURL is the WebSocket base URL (ws:// or wss://).
	ServerURL string

	// Token is the bearer credential attached to every connection request.
	Token string

	// Username is the local participant's identity, used to exclude the
	// local user from the active-typers view.
	Username string
}

// Manager is the top-level session orchestrator. All state transitions are
// serialized under one mutex: UI actions and transport events are the only
// writers, and the generation check on every inbound event is the sole guard
// against frames from a superseded connection.
type Manager struct {
	id   string
	cfg  Config
	life *transport.Lifecycle

	mu       sync.Mutex
	room     *directory.Room
	gen      uint64
	state    State
	timeline *timeline.Timeline
	tracker  *presence.Tracker
	typing   *presence.TypingSignal
	onChange func()

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a session and starts its event loop. The caller must
// Close it to release the connection and the loop goroutine.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		id:       uuid.NewString(),
		cfg:      cfg,
		life:     transport.NewLifecycle(cfg.ServerURL),
		timeline: timeline.New(),
		tracker:  presence.NewTracker(),
		typing:   &presence.TypingSignal{},
		done:     make(chan struct{}),
	}
	go m.loop()
	return m
}

// ID returns the session's instance id, used for log correlation.
func (m *Manager) ID() string {
	return m.id
}

// SetOnChange registers a callback invoked after any state change, so the UI
// layer can re-render. The callback runs outside the session lock; it should
// read state through the accessor methods.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// ---------------------------------------------------------------------------
// Outbound actions
// ---------------------------------------------------------------------------

// SelectRoom makes the given room the active one. Selecting the already
// active, still connected room is a no-op. Otherwise the switch is atomic
// from the UI's perspective: a best-effort stop-typing frame goes out on the
// old connection, local state is cleared, the old connection is fully torn
// down, and only then is the new one opened. A dropped room can be
// re-selected to reconnect; that is the same code path as the initial
// connect.
func (m *Manager) SelectRoom(ctx context.Context, room directory.Room) error {
	m.mu.Lock()

	if m.room != nil && m.room.RoomID == room.RoomID && m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}

	// The local participant must not appear to keep typing in a room it is
	// leaving. Best-effort: the connection may already be gone.
	if m.typing.Active() {
		m.emitTypingLocked(false)
	}
	m.typing.Reset()
	m.tracker.Reset()
	m.timeline.Reset()

	r := room
	m.room = &r

	gen, err := m.life.Open(ctx, room.RoomID, m.cfg.Token)
	if err != nil {
		// The old connection was torn down before the dial. Adopt the
		// advanced counter so its late events can never match m.gen and
		// leak into the timeline now attributed to the new room.
		m.gen = m.life.Gen()
		m.state = StateDisconnected
		metrics.Connected.Set(0)
		m.mu.Unlock()
		m.notify()
		return fmt.Errorf("session %s: select room %s: %w", m.id, room.RoomID, err)
	}

	m.gen = gen
	m.state = StateConnected
	metrics.RoomSwitches.Inc()
	metrics.Connected.Set(1)
	log.Printf("session %s: active room=%s gen=%d", m.id, room.RoomID, gen)

	m.mu.Unlock()
	m.notify()
	return nil
}

// SendMessage writes a chat frame on the active connection. An empty body
// (after trimming) with no file reference is a silent no-op. Sending without
// a live connection is rejected with ErrNotConnected. A successful send
// clears the local typing state, emitting the stop-typing frame first so the
// indicator never outlives the message.
func (m *Manager) SendMessage(text, fileID string) error {
	text = strings.TrimSpace(text)
	if text == "" && fileID == "" {
		return nil
	}
	if text != "" {
		if err := protocol.ValidateText(text); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return ErrNotConnected
	}

	if m.typing.Active() {
		m.emitTypingLocked(false)
		m.typing.Reset()
	}

	data, err := protocol.NewClientMessage(protocol.TypeChat, protocol.ChatMsg{
		Text:   text,
		FileID: fileID,
	})
	if err != nil {
		return fmt.Errorf("session: encode chat frame: %w", err)
	}
	if err := m.life.Send(m.gen, data); err != nil {
		return fmt.Errorf("session: send chat frame: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(protocol.TypeChat).Inc()
	return nil
}

// SetTyping feeds the local input state into the typing signal. Only edge
// transitions produce a frame; a frame that cannot be sent because the
// connection is gone is silently dropped (presence is best-effort, never
// queued or retried).
func (m *Manager) SetTyping(hasContent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emit, status := m.typing.OnInputChanged(hasContent)
	if !emit {
		return
	}
	m.emitTypingLocked(status)
}

// Blur forces the stop-typing edge when the input loses focus.
func (m *Manager) Blur() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.typing.OnBlur() {
		m.emitTypingLocked(false)
	}
}

// Close destroys the session: a final best-effort stop-typing frame goes out
// before the connection is torn down, then the event loop stops. Safe to
// call multiple times.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		if m.typing.Active() {
			m.emitTypingLocked(false)
		}
		m.state = StateIdle
		m.mu.Unlock()

		m.life.Close()
		close(m.done)
		metrics.Connected.Set(0)
		log.Printf("session %s: closed", m.id)
	})
}

// emitTypingLocked writes a typing frame on the current connection if one is
// live. Failures are dropped without surfacing: typing is ephemeral and a
// lost indicator is harmless.
func (m *Manager) emitTypingLocked(status bool) {
	if m.state != StateConnected {
		return
	}
	data, err := protocol.NewClientMessage(protocol.TypeTyping, protocol.TypingMsg{
		Status: status,
	})
	if err != nil {
		return
	}
	if err := m.life.Send(m.gen, data); err != nil {
		return
	}
	metrics.MessagesSent.WithLabelValues(protocol.TypeTyping).Inc()
}

// ---------------------------------------------------------------------------
// Read accessors for the UI layer
// ---------------------------------------------------------------------------

// Messages returns the active room's timeline in receipt order.
func (m *Manager) Messages() []timeline.Message {
	return m.timeline.Snapshot()
}

// ActiveTypers returns the participants currently typing in the active room,
// excluding the local user.
func (m *Manager) ActiveTypers() []string {
	return m.tracker.ActiveTypers(m.cfg.Username)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// ActiveRoom returns the selected room, if any.
func (m *Manager) ActiveRoom() (directory.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.room == nil {
		return directory.Room{}, false
	}
	return *m.room, true
}

// Username returns the local participant's identity.
func (m *Manager) Username() string {
	return m.cfg.Username
}

// ---------------------------------------------------------------------------
// Inbound event handling
// ---------------------------------------------------------------------------

// loop consumes transport events until the session is closed. It is the
// single consumer of the lifecycle's event channel.
func (m *Manager) loop() {
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.life.Events():
			m.handleEvent(ev)
		}
	}
}

// handleEvent applies one transport event. The generation check comes first:
// no matter how late an event from a superseded connection arrives, it must
// never be routed into the active room's state.
func (m *Manager) handleEvent(ev transport.Event) {
	m.mu.Lock()

	if ev.Gen != m.gen {
		metrics.FramesDropped.WithLabelValues("stale").Inc()
		log.Printf("session %s: dropping stale event gen=%d current=%d", m.id, ev.Gen, m.gen)
		m.mu.Unlock()
		return
	}

	switch ev.Kind {
	case transport.KindClosed:
		m.state = StateDisconnected
		metrics.Connected.Set(0)
		log.Printf("session %s: connection lost gen=%d: %v", m.id, ev.Gen, ev.Err)
	case transport.KindFrame:
		m.dispatchLocked(ev.Data)
	}

	m.mu.Unlock()
	m.notify()
}

// dispatchLocked classifies one inbound frame and routes it. Malformed
// frames are dropped and logged; they never crash the loop or corrupt state.
// Unknown frame types are ignored for forward compatibility.
func (m *Manager) dispatchLocked(data []byte) {
	frameType, msg, err := protocol.ParseServerFrame(data)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("malformed").Inc()
		log.Printf("session %s: dropping malformed frame: %v", m.id, err)
		return
	}

	switch frame := msg.(type) {
	case protocol.HistoryMsg:
		msgs := make([]timeline.Message, 0, len(frame.Messages))
		for _, entry := range frame.Messages {
			msgs = append(msgs, timeline.Message{
				User: entry.User,
				Text: entry.Text,
				File: entry.File,
			})
		}
		m.timeline.Hydrate(msgs)
	case protocol.ServerChatMsg:
		m.timeline.Append(timeline.Message{
			User: frame.User,
			Text: frame.Text,
			File: frame.File,
		})
	case protocol.ServerTypingMsg:
		m.tracker.SetTyping(frame.User, frame.Status)
	default:
		metrics.FramesDropped.WithLabelValues("unknown_type").Inc()
		log.Printf("session %s: ignoring frame type=%q", m.id, frameType)
		return
	}

	metrics.FramesReceived.WithLabelValues(frameType).Inc()
}

// notify invokes the change callback, if any, outside the session lock.
func (m *Manager) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}
