// Package files is the client for the file transfer service. It uploads a
// binary for a room and returns the reference descriptor the server assigns;
// the session core then carries only the opaque file id in an outbound chat
// frame. Oversized files are rejected client-side before any bytes leave the
// machine.
package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roomchat/chat-client/internal/api"
)

// MaxUploadBytes is the service's upload cap, enforced client-side as well
// so a doomed upload is never attempted.
const MaxUploadBytes = 10 << 20 // 10 MiB

// ErrFileTooLarge is returned when the file exceeds MaxUploadBytes.
var ErrFileTooLarge = errors.New("files: file exceeds 10 MiB upload limit")

// UploadResult is the descriptor the service assigns to an uploaded file.
type UploadResult struct {
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// Client talks to the file transfer service over HTTP.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a Client against the given base URL using the given
// bearer credential. The HTTP timeout is generous because uploads can be
// large.
func NewClient(baseURL, token string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload sends the given content as a multipart upload for a room. size must
// be the exact content length; anything above MaxUploadBytes is rejected
// before the request is built.
func (c *Client) Upload(ctx context.Context, roomID, name, contentType string, r io.Reader, size int64) (UploadResult, error) {
	if size > MaxUploadBytes {
		return UploadResult{}, ErrFileTooLarge
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("files: create multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("files: read upload content: %w", err)
	}
	if err := w.WriteField("room_id", roomID); err != nil {
		return UploadResult{}, fmt.Errorf("files: write room_id field: %w", err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("files: finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/files/upload", &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("files: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("files: upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, api.ErrorFromResponse(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UploadResult{}, fmt.Errorf("files: decode upload response: %w", err)
	}
	return result, nil
}

// UploadFile uploads a file from disk, deriving the content type from the
// file extension.
func (c *Client) UploadFile(ctx context.Context, roomID, path string) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("files: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("files: stat %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	return c.Upload(ctx, roomID, filepath.Base(path), contentType, f, info.Size())
}
