// Package protocol defines the WebSocket frame types exchanged with the chat
// server. All frames are JSON objects with a "type" discriminator: the server
// sends history, chat, and typing frames; the client sends chat and typing
// frames. Unknown inbound types are tolerated for forward compatibility.
package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Frame type constants
// ---------------------------------------------------------------------------

const (
	// TypeHistory is sent by the server exactly once per connection,
	// immediately after the handshake, carrying the room's message replay.
	TypeHistory = "history"

	// TypeChat carries a chat message. Outbound frames omit the user field;
	// the server fills it from the authenticated identity on echo.
	TypeChat = "chat"

	// TypeTyping carries an ephemeral typing indicator. Outbound frames omit
	// the user field, same as chat.
	TypeTyping = "typing"
)

// ---------------------------------------------------------------------------
// Outbound message limits
// ---------------------------------------------------------------------------

const (
	MaxMessageBytes = 4096 // max encoded text size
	MaxTextChars    = 2000 // max character count
)

// ValidateText checks that outbound chat text meets content requirements.
func ValidateText(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("message text is empty")
	}
	if len(text) > MaxMessageBytes {
		return fmt.Errorf("message exceeds %d byte limit", MaxMessageBytes)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("message exceeds %d character limit", MaxTextChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the frame type and the raw JSON payload for deferred parsing
// into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Shared payload structs
// ---------------------------------------------------------------------------

// FileRef describes a previously uploaded file attached to a chat message.
type FileRef struct {
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
}

// ChatMessage is a single message entry inside a history replay.
type ChatMessage struct {
	User      string   `json:"user"`
	Text      string   `json:"msg"`
	Timestamp string   `json:"timestamp,omitempty"`
	File      *FileRef `json:"file,omitempty"`
}

// ---------------------------------------------------------------------------
// Server -> Client frame structs
// ---------------------------------------------------------------------------

// HistoryMsg is the one-time replay of a room's recent messages, sent by the
// server immediately after the connection is established. It is a full
// replacement of the timeline, never a delta.
type HistoryMsg struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

// ServerChatMsg is a chat message relayed by the server with the sender's
// authenticated identity filled in.
type ServerChatMsg struct {
	Type string   `json:"type"`
	User string   `json:"user"`
	Text string   `json:"msg"`
	File *FileRef `json:"file,omitempty"`
}

// ServerTypingMsg relays a participant's typing indicator.
type ServerTypingMsg struct {
	Type   string `json:"type"`
	User   string `json:"user"`
	Status bool   `json:"status"`
}

// ---------------------------------------------------------------------------
// Client -> Server frame structs
// ---------------------------------------------------------------------------

// ChatMsg is an outbound chat message. FileID references a previously
// uploaded file and is optional; the server resolves it to a FileRef on echo.
type ChatMsg struct {
	Type   string `json:"type"`
	Text   string `json:"msg"`
	FileID string `json:"file_id,omitempty"`
}

// TypingMsg is an outbound typing indicator.
type TypingMsg struct {
	Type   string `json:"type"`
	Status bool   `json:"status"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseServerFrame parses raw WebSocket bytes into a typed server frame. It
// returns the frame type string, the decoded struct, and any error
// encountered during parsing. Unknown frame types are not an error: the type
// is returned with a nil message so the caller can skip them (forward
// compatibility).
func ParseServerFrame(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse frame: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeHistory:
		var m HistoryMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeChat:
		var m ServerChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m ServerTypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, nil
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewClientMessage creates a JSON-encoded byte slice for an outbound frame.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the client frame structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewClientMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal client message: %w", err)
	}
	return out, nil
}
