package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/upload" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("room_id"); got != "r1" {
			t.Errorf("unexpected room_id %q", got)
		}

		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()

		if header.Filename != "notes.txt" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); got != "text/plain" {
			t.Errorf("unexpected part content type %q", got)
		}
		content, _ := io.ReadAll(f)
		if string(content) != "hello" {
			t.Errorf("unexpected content %q", content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_id":"f-1","original_name":"notes.txt","content_type":"text/plain","size":5,"url":"/files/f-1"}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL, "tok").Upload(context.Background(),
		"r1", "notes.txt", "text/plain", strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.FileID != "f-1" || result.Size != 5 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestUploadTooLargeNeverSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("oversized upload reached the server")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").Upload(context.Background(),
		"r1", "big.bin", "", strings.NewReader("x"), MaxUploadBytes+1)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUploadDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if got := header.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("unexpected part content type %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_id":"f-2"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "tok").Upload(context.Background(),
		"r1", "blob", "", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if header.Filename != "report.json" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
			t.Errorf("expected json content type, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_id":"f-3","original_name":"report.json"}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL, "tok").UploadFile(context.Background(), "r1", path)
	if err != nil {
		t.Fatalf("upload file failed: %v", err)
	}
	if result.FileID != "f-3" {
		t.Errorf("unexpected result: %+v", result)
	}
}
