// Package transport owns the client's WebSocket connection to the chat
// server. At most one connection is live at any instant: opening a new one
// gracefully tears down the current one and waits for its reader to exit
// before dialing. Every connection is tagged with a monotonically increasing
// generation id; all events it produces carry that id so the session layer
// can discard frames from a superseded connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Kind identifies the category of a connection event.
type Kind int

const (
	// KindFrame carries one inbound text frame.
	KindFrame Kind = iota

	// KindClosed signals that the connection ended, either because the
	// server closed it or because of a transport error. It is not emitted
	// for teardowns initiated locally (those detach the sink first).
	// Successful opens have no event: Open returns synchronously.
	KindClosed
)

// Event is a single occurrence on a connection, tagged with the generation id
// of the connection that produced it.
type Event struct {
	Gen  uint64
	Kind Kind
	Data []byte // set for KindFrame
	Err  error  // set for KindClosed
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrNotConnected is returned by Send when no connection is live.
	ErrNotConnected = errors.New("transport: no live connection")

	// ErrSuperseded is returned by Send when the caller's generation id no
	// longer identifies the current connection.
	ErrSuperseded = errors.New("transport: connection superseded")
)

// closeGrace bounds the best-effort close frame write during teardown.
const closeGrace = 250 * time.Millisecond

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// conn bundles a live connection with its generation id and the channels used
// to detach its sink and observe reader exit.
type conn struct {
	raw    net.Conn
	gen    uint64
	stop   chan struct{} // closed by teardown; detaches the event sink
	exited chan struct{} // closed by the reader goroutine on return
}

// Lifecycle manages the single live connection. All events from all
// connection generations are delivered, in order, on one channel.
type Lifecycle struct {
	base   string
	events chan Event

	mu      sync.Mutex
	current *conn
	gen     uint64
}

// NewLifecycle creates a Lifecycle dialing against the given base URL
// (ws:// or wss://, no trailing slash required).
func NewLifecycle(baseURL string) *Lifecycle {
	return &Lifecycle{
		base:   strings.TrimRight(baseURL, "/"),
		events: make(chan Event, 64),
	}
}

// Events returns the channel on which connection events are delivered.
func (l *Lifecycle) Events() <-chan Event {
	return l.events
}

// Gen returns the current generation counter. While a connection is live this
// is its id; after a teardown the counter has advanced past every id ever
// issued, so no event can match it.
func (l *Lifecycle) Gen() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.gen
}

// Open connects to the given room, carrying the bearer credential as a query
// parameter (the browser WebSocket handshake cannot set custom headers, so
// the server reads the token from the URL). Any current connection is torn
// down completely before the new dial begins; the two never overlap, so no
// cross-room frame can leak. On success it returns the new connection's
// generation id.
func (l *Lifecycle) Open(ctx context.Context, roomID, token string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.teardownLocked()

	target := fmt.Sprintf("%s/ws/%s?token=%s",
		l.base, url.PathEscape(roomID), url.QueryEscape(token))

	raw, _, _, err := ws.Dial(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("transport: dial room %s: %w", roomID, err)
	}

	l.gen++
	c := &conn{
		raw:    raw,
		gen:    l.gen,
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	l.current = c

	go l.readLoop(c)

	log.Printf("transport: connected room=%s gen=%d", roomID, c.gen)
	return c.gen, nil
}

// Close tears down the current connection, if any. The connection's event
// sink is detached first, so no further events from it are delivered. It is
// safe to call when no connection is live.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.teardownLocked()
}

// Send writes a text frame on the current connection. The caller passes the
// generation id it obtained from Open; if a newer connection has replaced
// that one the write is refused with ErrSuperseded rather than leaking a
// frame onto the wrong room's stream.
func (l *Lifecycle) Send(gen uint64, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return ErrNotConnected
	}
	if gen != l.current.gen {
		return ErrSuperseded
	}
	if err := wsutil.WriteClientMessage(l.current.raw, ws.OpText, data); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// teardownLocked detaches the current connection's sink, requests a graceful
// close, and waits for its reader goroutine to exit. No new connection is
// dialed until this completes.
func (l *Lifecycle) teardownLocked() {
	c := l.current
	if c == nil {
		return
	}
	l.current = nil

	// The dead connection's id must never be current again. Advancing the
	// counter here means that even if the redial that follows fails, no
	// generation is left behind for the dead connection's events to match.
	l.gen++

	close(c.stop)

	// Best-effort graceful close request; the peer may already be gone.
	c.raw.SetWriteDeadline(time.Now().Add(closeGrace))
	frame := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	frame = ws.MaskFrameInPlace(frame)
	if err := ws.WriteFrame(c.raw, frame); err != nil {
		log.Printf("transport: close frame gen=%d: %v", c.gen, err)
	}

	c.raw.Close()
	<-c.exited
	log.Printf("transport: disconnected gen=%d", c.gen)
}

// readLoop reads inbound text frames and forwards them as events until the
// connection ends. A locally initiated teardown closes c.stop first, which
// both unblocks pending emits and suppresses the KindClosed event: frames
// from a connection that is no longer current are discarded, not delivered.
func (l *Lifecycle) readLoop(c *conn) {
	defer close(c.exited)

	for {
		data, err := wsutil.ReadServerText(c.raw)
		if err != nil {
			select {
			case <-c.stop:
				// Intentional teardown; sink already detached.
				return
			default:
			}
			l.emit(c, Event{Gen: c.gen, Kind: KindClosed, Err: err})
			return
		}
		if !l.emit(c, Event{Gen: c.gen, Kind: KindFrame, Data: data}) {
			return
		}
	}
}

// emit delivers an event unless the connection's sink has been detached.
// Returns false when the connection is being torn down.
func (l *Lifecycle) emit(c *conn, ev Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-c.stop:
		return false
	}
}
