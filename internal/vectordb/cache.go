package vectordb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/docwatch/internal/logger"
)

// CachedEmbedder wraps an Embedder with a Redis read-through cache keyed by
// content hash and model. Identical chunk text embeds once; propagating the
// same document into other workspaces reuses the cached vectors. Redis
// failures degrade to recomputing, never to a sync failure.
type CachedEmbedder struct {
	inner  Embedder
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedEmbedder creates a caching layer around inner.
func NewCachedEmbedder(inner Embedder, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// Model returns the wrapped embedder's model name.
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("docwatch:embed:%s:%s", c.inner.Model(), hex.EncodeToString(sum[:]))
}

// Embed returns cached vectors where available and computes the rest.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Embedding cache read failed, recomputing all chunks",
			logger.Int("chunks", len(texts)),
			logger.Error(err),
		)
		return c.EmbedFresh(ctx, texts)
	}

	for i, raw := range cached {
		str, ok := raw.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		var vec []float32
		if unmarshalErr := json.Unmarshal([]byte(str), &vec); unmarshalErr != nil {
			missing = append(missing, i)
			continue
		}
		vectors[i] = vec
	}

	if len(missing) == 0 {
		c.logger.Debug("All chunk embeddings served from cache",
			logger.Int("chunks", len(texts)),
		)
		return vectors, nil
	}

	missTexts := make([]string, len(missing))
	for i, idx := range missing {
		missTexts[i] = texts[idx]
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missing {
		vectors[idx] = fresh[i]
	}
	c.store(ctx, missTexts, fresh)

	c.logger.Debug("Embedded chunks with partial cache hit",
		logger.Int("chunks", len(texts)),
		logger.Int("cache_misses", len(missing)),
	)

	return vectors, nil
}

// EmbedFresh recomputes every vector from the upstream model, ignoring
// cached values, and refreshes the cache with the results.
func (c *CachedEmbedder) EmbedFresh(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	c.store(ctx, texts, vectors)
	return vectors, nil
}

// store writes vectors to the cache. Write failures are logged and dropped.
func (c *CachedEmbedder) store(ctx context.Context, texts []string, vectors [][]float32) {
	if len(texts) != len(vectors) {
		return
	}

	pipe := c.client.Pipeline()
	for i, text := range texts {
		data, marshalErr := json.Marshal(vectors[i])
		if marshalErr != nil {
			continue
		}
		pipe.Set(ctx, c.key(text), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Embedding cache write failed",
			logger.Int("chunks", len(texts)),
			logger.Error(err),
		)
	}
}
