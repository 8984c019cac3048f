package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/docwatch/internal/domain"
	"github.com/jonesrussell/docwatch/internal/logger"
)

// Default vector store settings.
const (
	DefaultIndexPrefix  = "docwatch"
	DefaultDimensions   = 768
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 20
)

// StoreParams contains dependencies for creating a vector store.
type StoreParams struct {
	Client       *es.Client
	Embedder     Embedder
	IndexPrefix  string
	Dimensions   int
	ChunkSize    int
	ChunkOverlap int
	Logger       logger.Logger
}

// Store maintains one vector index per workspace. Chunks are stored under
// ids derived from the owning document id so a document's chunks can be
// replaced wholesale.
type Store struct {
	client       *es.Client
	embedder     Embedder
	indexPrefix  string
	dimensions   int
	chunkSize    int
	chunkOverlap int
	logger       logger.Logger
}

// NewStore creates a vector store.
func NewStore(p StoreParams) *Store {
	if p.IndexPrefix == "" {
		p.IndexPrefix = DefaultIndexPrefix
	}
	if p.Dimensions == 0 {
		p.Dimensions = DefaultDimensions
	}
	if p.ChunkSize == 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.ChunkOverlap == 0 {
		p.ChunkOverlap = DefaultChunkOverlap
	}
	if p.Logger == nil {
		p.Logger = logger.NewNop()
	}

	return &Store{
		client:       p.Client,
		embedder:     p.Embedder,
		indexPrefix:  p.IndexPrefix,
		dimensions:   p.Dimensions,
		chunkSize:    p.ChunkSize,
		chunkOverlap: p.ChunkOverlap,
		logger:       p.Logger,
	}
}

var invalidIndexChars = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeSlug normalizes a workspace slug into a valid Elasticsearch index
// name segment.
func sanitizeSlug(slug string) string {
	normalized := strings.ToLower(slug)
	normalized = invalidIndexChars.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// NamespaceIndex returns the index name backing a workspace's vectors.
// Format: {prefix}-ws-{slug}.
func (s *Store) NamespaceIndex(workspaceSlug string) string {
	return fmt.Sprintf("%s-ws-%s", s.indexPrefix, sanitizeSlug(workspaceSlug))
}

// chunkDocument is one embedded chunk as stored in the index.
type chunkDocument struct {
	DocID      string    `json:"doc_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	Published  string    `json:"published,omitempty"`
	WordCount  int       `json:"word_count,omitempty"`
	IndexedAt  time.Time `json:"indexed_at"`
}

func (s *Store) namespaceMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"doc_id":      map[string]string{"type": "keyword"},
				"chunk_index": map[string]string{"type": "integer"},
				"text":        map[string]string{"type": "text"},
				"vector": map[string]any{
					"type":       "dense_vector",
					"dims":       s.dimensions,
					"index":      true,
					"similarity": "cosine",
				},
				"title":      map[string]string{"type": "text"},
				"url":        map[string]string{"type": "keyword"},
				"published":  map[string]string{"type": "keyword"},
				"word_count": map[string]string{"type": "integer"},
				"indexed_at": map[string]string{"type": "date"},
			},
		},
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
	}
}

// EnsureNamespace creates the workspace's vector index if it does not exist.
func (s *Store) EnsureNamespace(ctx context.Context, workspaceSlug string) error {
	index := s.NamespaceIndex(workspaceSlug)

	res, err := s.client.Indices.Exists([]string{index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	var buf bytes.Buffer
	if encodeErr := json.NewEncoder(&buf).Encode(s.namespaceMapping()); encodeErr != nil {
		return fmt.Errorf("error encoding mapping: %w", encodeErr)
	}

	createRes, err := s.client.Indices.Create(
		index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	s.logger.Info("Created workspace vector index",
		logger.String("index", index),
		logger.String("workspace", workspaceSlug),
	)
	return nil
}

// DeleteDocument removes every chunk belonging to docID from the
// workspace's index. A workspace without an index has no vectors, which is
// not an error.
func (s *Store) DeleteDocument(ctx context.Context, workspaceSlug, docID string) error {
	index := s.NamespaceIndex(workspaceSlug)

	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"doc_id": docID,
			},
		},
	}

	queryBytes, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.DeleteByQuery(
		[]string{index},
		bytes.NewReader(queryBytes),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document vectors: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("error deleting document vectors: %s", res.String())
	}

	var result struct {
		Deleted int `json:"deleted"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return fmt.Errorf("error decoding response: %w", decodeErr)
	}

	s.logger.Debug("Deleted document vectors",
		logger.String("index", index),
		logger.String("doc_id", docID),
		logger.Int("chunks", result.Deleted),
	)
	return nil
}

// AddDocument chunks the representation's page content, embeds the chunks,
// and indexes them into the workspace's namespace under the
// representation's docId. When forceReembed is set, vectors are recomputed
// instead of served from the embedding cache.
func (s *Store) AddDocument(ctx context.Context, workspaceSlug string, rep *domain.DocumentRepresentation, forceReembed bool) error {
	if rep.DocID == "" {
		return fmt.Errorf("document representation has no docId")
	}
	if rep.PageContent == "" {
		return fmt.Errorf("document representation has no page content")
	}

	if err := s.EnsureNamespace(ctx, workspaceSlug); err != nil {
		return err
	}

	chunks := chunkText(rep.PageContent, s.chunkSize, s.chunkOverlap)
	vectors, err := s.embed(ctx, chunks, forceReembed)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors))
	}

	index := s.NamespaceIndex(workspaceSlug)
	now := time.Now().UTC()

	var buf bytes.Buffer
	for i, chunk := range chunks {
		meta := map[string]any{
			"index": map[string]any{
				"_index": index,
				"_id":    fmt.Sprintf("%s-%d", rep.DocID, i),
			},
		}
		if encodeErr := json.NewEncoder(&buf).Encode(meta); encodeErr != nil {
			return fmt.Errorf("failed to encode meta: %w", encodeErr)
		}

		doc := chunkDocument{
			DocID:      rep.DocID,
			ChunkIndex: i,
			Text:       chunk,
			Vector:     vectors[i],
			Title:      rep.Title,
			URL:        rep.URL,
			Published:  rep.Published,
			WordCount:  rep.WordCount,
			IndexedAt:  now,
		}
		if encodeErr := json.NewEncoder(&buf).Encode(doc); encodeErr != nil {
			return fmt.Errorf("failed to encode chunk: %w", encodeErr)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk indexing error: %s", res.String())
	}

	var bulkResult struct {
		Errors bool `json:"errors"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&bulkResult); decodeErr != nil {
		return fmt.Errorf("error decoding bulk response: %w", decodeErr)
	}
	if bulkResult.Errors {
		return fmt.Errorf("bulk indexing reported item failures for doc %s", rep.DocID)
	}

	s.logger.Debug("Indexed document vectors",
		logger.String("index", index),
		logger.String("doc_id", rep.DocID),
		logger.Int("chunks", len(chunks)),
		logger.Bool("force_reembed", forceReembed),
	)
	return nil
}

// embed resolves vectors for chunks, bypassing any read cache when force is
// set and the embedder supports it.
func (s *Store) embed(ctx context.Context, chunks []string, force bool) ([][]float32, error) {
	if force {
		if fresh, ok := s.embedder.(FreshEmbedder); ok {
			return fresh.EmbedFresh(ctx, chunks)
		}
	}
	return s.embedder.Embed(ctx, chunks)
}
