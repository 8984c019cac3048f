package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonesrussell/docwatch/internal/domain"
)

func TestClient_Resync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ext/resync-source-document" {
			t.Errorf("expected /ext/resync-source-document, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", auth)
		}

		var req resyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Type != "link" {
			t.Errorf("expected type 'link', got %q", req.Type)
		}
		if req.Options.Link != "https://example.com/guide" {
			t.Errorf("expected link option, got %q", req.Options.Link)
		}

		content := "fresh page content"
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resyncResponse{Success: true, Content: &content}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil)
	content, err := client.Resync(context.Background(), domain.SourceLink, ResyncOptions{
		Link: "https://example.com/guide",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "fresh page content" {
		t.Errorf("expected fresh content, got %q", content)
	}
}

func TestClient_ResyncChunkSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req resyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Type != "github" {
			t.Errorf("expected type 'github', got %q", req.Type)
		}
		if req.Options.ChunkSource != "github://repo/file.md" {
			t.Errorf("expected raw chunkSource, got %q", req.Options.ChunkSource)
		}
		if req.Options.Link != "" {
			t.Errorf("expected no link option, got %q", req.Options.Link)
		}

		content := "# readme"
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resyncResponse{Success: true, Content: &content}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	content, err := client.Resync(context.Background(), domain.SourceGitHub, ResyncOptions{
		ChunkSource: "github://repo/file.md",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "# readme" {
		t.Errorf("expected readme content, got %q", content)
	}
}

func TestClient_ResyncNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resyncResponse{Success: false, Reason: "upstream returned 404"}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	_, err := client.Resync(context.Background(), domain.SourceLink, ResyncOptions{Link: "https://example.com/gone"})

	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestClient_ResyncEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		empty := ""
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resyncResponse{Success: true, Content: &empty}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	_, err := client.Resync(context.Background(), domain.SourceYouTube, ResyncOptions{Link: "https://youtube.com/watch?v=x"})

	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent for empty content, got %v", err)
	}
}

func TestClient_ResyncBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	_, err := client.Resync(context.Background(), domain.SourceLink, ResyncOptions{Link: "https://example.com"})

	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrNoContent) {
		t.Errorf("server errors should not map to ErrNoContent, got %v", err)
	}
}

func TestClient_IsOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)
	if !client.IsOnline(context.Background()) {
		t.Error("expected collector to be online")
	}
}

func TestClient_IsOnlineUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close()

	client := NewClient(server.URL, "", nil)
	if client.IsOnline(context.Background()) {
		t.Error("expected collector to be offline after server close")
	}
}
