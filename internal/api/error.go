// Package api holds the error type shared by the HTTP service clients
// (auth, room directory, file transfer). The chat server reports failures as
// JSON bodies of the form {"detail": "..."} with a non-2xx status.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response body is read.
const maxErrorBody = 4096

// Error is a rejection returned by one of the chat services. Detail is the
// human-readable reason reported by the server.
type Error struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.Status)
}

// ErrorFromResponse builds an *Error from a non-2xx response, decoding the
// {"detail": ...} body when present and falling back to the status text.
func ErrorFromResponse(resp *http.Response) error {
	apiErr := &Error{
		Status: resp.StatusCode,
		Detail: http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
