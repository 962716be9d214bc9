// Package directory is the client for the room directory service: listing
// the rooms the user belongs to, creating rooms (optionally
// password-protected), joining by invite code or room id, and rotating
// invite codes. The session core only consumes the Room value; everything
// here is plain request/response glue.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roomchat/chat-client/internal/api"
)

// Room is a chat room as reported by the directory. Identity is RoomID; the
// session core treats the value as immutable once selected.
type Room struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	InviteCode  string `json:"invite_code,omitempty"`
	HasPassword bool   `json:"-"`
}

// UnmarshalJSON derives HasPassword from the presence of the hashed password
// field on the wire; the hash itself is never retained client-side.
func (r *Room) UnmarshalJSON(data []byte) error {
	type alias Room
	aux := struct {
		*alias
		HashedPassword string `json:"hashed_password"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.HasPassword = aux.HashedPassword != ""
	return nil
}

// JoinRequest identifies the room to join: either by invite code, or by room
// id with the room's password when one is set.
type JoinRequest struct {
	InviteCode string `json:"invite_code,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
	Password   string `json:"password,omitempty"`
}

// Client talks to the room directory service over HTTP, authenticating every
// request with the bearer credential.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a Client against the given base URL using the given
// bearer credential.
func NewClient(baseURL, token string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Mine lists the rooms the authenticated user is a member of.
func (c *Client) Mine(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.do(ctx, http.MethodGet, "/rooms/mine", nil, &rooms); err != nil {
		return nil, fmt.Errorf("directory: list rooms: %w", err)
	}
	return rooms, nil
}

// Create creates a room. A non-empty password makes the room
// password-protected.
func (c *Client) Create(ctx context.Context, name, password string) (Room, error) {
	payload := map[string]string{"name": name}
	if password != "" {
		payload["password"] = password
	}

	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms/create", payload, &room); err != nil {
		return Room{}, fmt.Errorf("directory: create room: %w", err)
	}
	return room, nil
}

// Join adds the authenticated user to a room by invite code or room id.
func (c *Client) Join(ctx context.Context, join JoinRequest) (Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms/join", join, &room); err != nil {
		return Room{}, fmt.Errorf("directory: join room: %w", err)
	}
	return room, nil
}

// RefreshInvite rotates a room's invite code. Only the room owner may do
// this; the service rejects anyone else.
func (c *Client) RefreshInvite(ctx context.Context, roomID string) (Room, error) {
	path := fmt.Sprintf("/rooms/%s/refresh_invite", url.PathEscape(roomID))

	var room Room
	if err := c.do(ctx, http.MethodPost, path, nil, &room); err != nil {
		return Room{}, fmt.Errorf("directory: refresh invite: %w", err)
	}
	return room, nil
}

// do issues one authenticated JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return api.ErrorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
