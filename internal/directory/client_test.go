package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roomchat/chat-client/internal/api"
)

func TestMine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/mine" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"room_id":"r1","name":"general","invite_code":"inv-1"},
			{"room_id":"r2","name":"private","hashed_password":"$2b$12$abcdef"}
		]`))
	}))
	defer srv.Close()

	rooms, err := NewClient(srv.URL, "tok").Mine(context.Background())
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].RoomID != "r1" || rooms[0].InviteCode != "inv-1" || rooms[0].HasPassword {
		t.Errorf("unexpected room: %+v", rooms[0])
	}
	// The password hash must surface only as a boolean.
	if !rooms[1].HasPassword {
		t.Errorf("expected HasPassword for a protected room: %+v", rooms[1])
	}
}

func TestCreateSendsPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/create" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["name"] != "secrets" || payload["password"] != "hunter2" {
			t.Errorf("unexpected payload: %v", payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room_id":"r9","name":"secrets","invite_code":"inv-9","hashed_password":"$2b$12$x"}`))
	}))
	defer srv.Close()

	room, err := NewClient(srv.URL, "tok").Create(context.Background(), "secrets", "hunter2")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if room.RoomID != "r9" || !room.HasPassword {
		t.Errorf("unexpected room: %+v", room)
	}
}

func TestCreateOmitsEmptyPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if _, ok := payload["password"]; ok {
			t.Error("password field should be absent for an open room")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room_id":"r3","name":"open"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "tok").Create(context.Background(), "open", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func TestJoinByInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/join" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var join JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&join); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if join.InviteCode != "inv-1" || join.RoomID != "" {
			t.Errorf("unexpected join request: %+v", join)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room_id":"r1","name":"general"}`))
	}))
	defer srv.Close()

	room, err := NewClient(srv.URL, "tok").Join(context.Background(), JoinRequest{InviteCode: "inv-1"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if room.RoomID != "r1" {
		t.Errorf("unexpected room: %+v", room)
	}
}

func TestJoinWrongPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"Incorrect room password"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").Join(context.Background(),
		JoinRequest{RoomID: "r2", Password: "wrong"})
	if err == nil {
		t.Fatal("expected an error for a wrong password")
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Detail != "Incorrect room password" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestRefreshInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/r1/refresh_invite" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room_id":"r1","name":"general","invite_code":"inv-new"}`))
	}))
	defer srv.Close()

	room, err := NewClient(srv.URL, "tok").RefreshInvite(context.Background(), "r1")
	if err != nil {
		t.Fatalf("refresh invite failed: %v", err)
	}
	if room.InviteCode != "inv-new" {
		t.Errorf("expected rotated invite code, got %q", room.InviteCode)
	}
}
