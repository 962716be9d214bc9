// Package auth is the client for the authentication service. It exchanges a
// username/password for an opaque bearer credential and can validate an
// existing credential via the "who am I" endpoint. The credential is the only
// thing the session core needs from this package.
package auth

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

// Credential is the result of a successful sign-in.
type Credential struct {
	Token    string `json:"access_token"`
	Username string `json:"username"`
}

// Account is the identity behind a credential, as reported by the service.
type Account struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client talks to the authentication service over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// SignIn exchanges a username (or email) and password for a bearer
// credential. The service accepts a form-encoded body with "username" and
// "password" fields.
func (c *Client) SignIn(ctx context.Context, identifier, password string) (Credential, error) {
	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/signin", strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("auth: build signin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("auth: signin: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credential{}, api.ErrorFromResponse(resp)
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return Credential{}, fmt.Errorf("auth: decode signin response: %w", err)
	}
	if cred.Token == "" {
		return Credential{}, fmt.Errorf("auth: signin response carried no token")
	}
	return cred, nil
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, username, email, password string) error {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("auth: marshal signup payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/signup", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("auth: build signup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth: signup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return api.ErrorFromResponse(resp)
	}
	return nil
}

// Me validates a credential and returns the account it belongs to.
func (c *Client) Me(ctx context.Context, token string) (Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/me", nil)
	if err != nil {
		return Account{}, fmt.Errorf("auth: build me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Account{}, fmt.Errorf("auth: me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Account{}, api.ErrorFromResponse(resp)
	}

	var acct Account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return Account{}, fmt.Errorf("auth: decode me response: %w", err)
	}
	return acct, nil
}
