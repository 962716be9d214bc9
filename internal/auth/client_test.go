package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roomchat/chat-client/internal/api"
)

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signin" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
			t.Errorf("unexpected form values: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-abc","username":"alice"}`))
	}))
	defer srv.Close()

	cred, err := NewClient(srv.URL).SignIn(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if cred.Token != "tok-abc" || cred.Username != "alice" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

func TestSignInRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SignIn(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("expected an error for rejected credentials")
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.Status)
	}
	if apiErr.Detail != "Incorrect username or password" {
		t.Errorf("unexpected detail %q", apiErr.Detail)
	}
}

func TestSignInMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username":"alice"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).SignIn(context.Background(), "alice", "s3cret"); err == nil {
		t.Fatal("expected an error for a response without a token")
	}
}

func TestSignUpAcceptsCreated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).SignUp(context.Background(), "alice", "a@example.com", "s3cret"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
}

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username":"alice","email":"a@example.com"}`))
	}))
	defer srv.Close()

	acct, err := NewClient(srv.URL).Me(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if acct.Username != "alice" || acct.Email != "a@example.com" {
		t.Errorf("unexpected account: %+v", acct)
	}
}
