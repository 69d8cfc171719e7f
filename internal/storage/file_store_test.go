package storage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ctx := context.Background()

	handle, err := store.Put(ctx, "label.jpg", "image/jpeg", jpegBytes)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(handle, "file://") {
		t.Errorf("Expected file handle, got %s", handle)
	}

	data, err := store.Get(ctx, handle)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Equal(data, jpegBytes) {
		t.Error("Expected stored bytes back")
	}

	if err := store.Delete(ctx, handle); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, handle); !errors.Is(err, ErrPhotoNotFound) {
		t.Errorf("Expected ErrPhotoNotFound after delete, got %v", err)
	}
}

func TestFileStore_RejectsBadNames(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	for _, name := range []string{"", "../escape.jpg", filepath.Join("nested", "a.jpg")} {
		if _, err := store.Put(context.Background(), name, "image/jpeg", jpegBytes); err == nil {
			t.Errorf("Expected error for name %q", name)
		}
	}
}

func TestFileStore_DeleteOutsideDir(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	other, _ := NewFileStore(t.TempDir())
	handle, _ := other.Put(context.Background(), "a.jpg", "image/jpeg", jpegBytes)

	if err := store.Delete(context.Background(), handle); err == nil {
		t.Error("Expected refusal to delete a foreign photo")
	}
}

func TestParseBlobHandle(t *testing.T) {
	tests := []struct {
		handle    string
		container string
		name      string
		wantErr   bool
	}{
		{"azblob://captures/2024/a.jpg", "captures", "2024/a.jpg", false},
		{blobHandle("captures", "b.jpg"), "captures", "b.jpg", false},
		{"azblob:///a.jpg", "", "", true},
		{"azblob://captures/", "", "", true},
		{"file:///tmp/a.jpg", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			container, name, err := parseBlobHandle(tt.handle)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if container != tt.container || name != tt.name {
				t.Errorf("Expected %s/%s, got %s/%s", tt.container, tt.name, container, name)
			}
		})
	}
}

func TestRouter_DispatchesByScheme(t *testing.T) {
	files, _ := NewFileStore(t.TempDir())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	router := NewRouter(files, map[string]PhotoStore{"file": files, "HTTP": fetcher})
	ctx := context.Background()

	handle, err := router.Put(ctx, "a.jpg", "image/jpeg", jpegBytes)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data, err := router.Get(ctx, handle); err != nil || !bytes.Equal(data, jpegBytes) {
		t.Errorf("Expected local bytes, got %v", err)
	}
	if data, err := router.Get(ctx, server.URL); err != nil || string(data) != "remote" {
		t.Errorf("Expected remote bytes, got %q, %v", data, err)
	}
	if _, err := router.Get(ctx, "azblob://c/a.jpg"); err == nil {
		t.Error("Expected error for unrouted scheme")
	}
}
