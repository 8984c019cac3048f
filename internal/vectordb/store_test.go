package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/docwatch/internal/domain"
	"github.com/jonesrussell/docwatch/internal/logger"
)

// mockTransport implements http.RoundTripper for mocking Elasticsearch responses.
type mockTransport struct {
	RoundTripFn func(req *http.Request) (*http.Response, error)
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.RoundTripFn(req)
}

func esResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}},
	}
}

func newTestStore(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *Store {
	t.Helper()

	client, err := es.NewClient(es.Config{
		Transport: &mockTransport{RoundTripFn: fn},
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return NewStore(StoreParams{
		Client:     client,
		Embedder:   &stubEmbedder{},
		Dimensions: 2,
		Logger:     logger.NewNop(),
	})
}

func TestNamespaceIndex(t *testing.T) {
	store := NewStore(StoreParams{Embedder: &stubEmbedder{}})

	tests := []struct {
		slug string
		want string
	}{
		{"main", "docwatch-ws-main"},
		{"Main Workspace", "docwatch-ws-main-workspace"},
		{"sales_2024", "docwatch-ws-sales-2024"},
		{"", "docwatch-ws-unknown"},
	}

	for _, tt := range tests {
		if got := store.NamespaceIndex(tt.slug); got != tt.want {
			t.Errorf("NamespaceIndex(%q) = %q, want %q", tt.slug, got, tt.want)
		}
	}
}

func TestStore_DeleteDocument(t *testing.T) {
	var capturedPath string
	var capturedBody []byte

	store := newTestStore(t, func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		if req.Body != nil {
			capturedBody, _ = io.ReadAll(req.Body)
		}
		return esResponse(http.StatusOK, `{"deleted": 3}`), nil
	})

	err := store.DeleteDocument(context.Background(), "main", "uuid-1")
	if err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	if capturedPath != "/docwatch-ws-main/_delete_by_query" {
		t.Errorf("path = %q, want /docwatch-ws-main/_delete_by_query", capturedPath)
	}
	if !strings.Contains(string(capturedBody), `"doc_id":"uuid-1"`) {
		t.Errorf("query body missing doc_id term: %s", capturedBody)
	}
}

func TestStore_DeleteDocumentMissingIndex(t *testing.T) {
	store := newTestStore(t, func(_ *http.Request) (*http.Response, error) {
		return esResponse(http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`), nil
	})

	// A workspace that never had vectors is an empty namespace, not an error.
	if err := store.DeleteDocument(context.Background(), "fresh", "uuid-1"); err != nil {
		t.Errorf("DeleteDocument() on missing index error = %v, want nil", err)
	}
}

func TestStore_AddDocument(t *testing.T) {
	var bulkBody []byte
	var createdIndex bool

	store := newTestStore(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodHead:
			// Namespace does not exist yet.
			return esResponse(http.StatusNotFound, ``), nil
		case req.Method == http.MethodPut:
			createdIndex = true
			return esResponse(http.StatusOK, `{"acknowledged": true}`), nil
		case strings.HasSuffix(req.URL.Path, "/_bulk"):
			bulkBody, _ = io.ReadAll(req.Body)
			return esResponse(http.StatusOK, `{"errors": false, "items": []}`), nil
		default:
			t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
			return esResponse(http.StatusInternalServerError, `{}`), nil
		}
	})

	rep := &domain.DocumentRepresentation{
		DocID:       "uuid-9",
		Title:       "Guide",
		URL:         "https://example.com/guide",
		PageContent: "some fresh page content",
	}

	err := store.AddDocument(context.Background(), "main", rep, false)
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}

	if !createdIndex {
		t.Error("expected missing namespace index to be created")
	}

	lines := strings.Split(strings.TrimSpace(string(bulkBody)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 1 meta + 1 doc line, got %d lines", len(lines))
	}

	var meta struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
		t.Fatalf("failed to parse meta line: %v", err)
	}
	if meta.Index.Index != "docwatch-ws-main" {
		t.Errorf("meta index = %q, want docwatch-ws-main", meta.Index.Index)
	}
	if meta.Index.ID != "uuid-9-0" {
		t.Errorf("meta id = %q, want uuid-9-0", meta.Index.ID)
	}

	var doc chunkDocument
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("failed to parse doc line: %v", err)
	}
	if doc.DocID != "uuid-9" {
		t.Errorf("doc_id = %q, want uuid-9", doc.DocID)
	}
	if doc.Text != "some fresh page content" {
		t.Errorf("text = %q, want page content", doc.Text)
	}
	if len(doc.Vector) != 2 {
		t.Errorf("vector length = %d, want 2", len(doc.Vector))
	}
}

func TestStore_AddDocumentBulkItemFailure(t *testing.T) {
	store := newTestStore(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodHead:
			return esResponse(http.StatusOK, ``), nil
		case strings.HasSuffix(req.URL.Path, "/_bulk"):
			return esResponse(http.StatusOK, `{"errors": true, "items": [{"index": {"status": 400}}]}`), nil
		default:
			return esResponse(http.StatusOK, `{}`), nil
		}
	})

	rep := &domain.DocumentRepresentation{
		DocID:       "uuid-9",
		PageContent: "content",
	}

	if err := store.AddDocument(context.Background(), "main", rep, false); err == nil {
		t.Fatal("expected error when bulk reports item failures")
	}
}

func TestStore_AddDocumentRequiresContent(t *testing.T) {
	store := newTestStore(t, func(_ *http.Request) (*http.Response, error) {
		t.Error("no request should be sent for an empty representation")
		return esResponse(http.StatusOK, `{}`), nil
	})

	rep := &domain.DocumentRepresentation{DocID: "uuid-9"}
	if err := store.AddDocument(context.Background(), "main", rep, false); err == nil {
		t.Error("expected error for representation without content")
	}

	rep = &domain.DocumentRepresentation{PageContent: "content"}
	if err := store.AddDocument(context.Background(), "main", rep, false); err == nil {
		t.Error("expected error for representation without docId")
	}
}

// forceTrackingEmbedder records whether the fresh path was taken.
type forceTrackingEmbedder struct {
	stubEmbedder
	freshCalls int
}

func (f *forceTrackingEmbedder) EmbedFresh(ctx context.Context, texts []string) ([][]float32, error) {
	f.freshCalls++
	return f.Embed(ctx, texts)
}

func TestStore_AddDocumentForceReembed(t *testing.T) {
	embedder := &forceTrackingEmbedder{}

	client, err := es.NewClient(es.Config{
		Transport: &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
			if req.Method == http.MethodHead {
				return esResponse(http.StatusOK, ``), nil
			}
			return esResponse(http.StatusOK, `{"errors": false}`), nil
		}},
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	store := NewStore(StoreParams{
		Client:   client,
		Embedder: embedder,
		Logger:   logger.NewNop(),
	})

	rep := &domain.DocumentRepresentation{DocID: "uuid-9", PageContent: "content"}

	if err := store.AddDocument(context.Background(), "main", rep, true); err != nil {
		t.Fatalf("AddDocument(force) error = %v", err)
	}
	if embedder.freshCalls != 1 {
		t.Errorf("expected 1 fresh embed call, got %d", embedder.freshCalls)
	}

	if err := store.AddDocument(context.Background(), "main", rep, false); err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}
	if embedder.freshCalls != 1 {
		t.Errorf("non-forced add should not use fresh path, got %d", embedder.freshCalls)
	}
}
