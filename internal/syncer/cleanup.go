package syncer

import (
	"context"
	"fmt"

	"github.com/jonesrussell/docwatch/internal/logger"
)

// DefaultCleanupBatchSize is the progress-reporting interval for orphan
// deletion.
const DefaultCleanupBatchSize = 500

// CacheWalker enumerates and removes cached document files.
type CacheWalker interface {
	Walk(fn func(docpath string) error) error
	Delete(docpath string) error
}

// DocpathLister reports the cache paths still referenced by a document row.
type DocpathLister interface {
	ListDocpaths(ctx context.Context) ([]string, error)
}

// CleanupOptions configure one orphan cleanup pass.
type CleanupOptions struct {
	// BatchSize controls how often progress is logged. Zero or negative
	// falls back to the default.
	BatchSize int
	// DryRun lists orphaned files without deleting them.
	DryRun bool
}

// CleanupSummary reports the outcome of one cleanup pass.
type CleanupSummary struct {
	Scanned  int
	Orphaned int
	Deleted  int
	Failed   int
}

// Cleaner removes cached document files that no longer back any document
// row. Documents deleted from a workspace leave their JSON representation
// behind; a periodic cleanup pass reclaims the space.
type Cleaner struct {
	cache     CacheWalker
	documents DocpathLister
	logger    logger.Logger
}

// NewCleaner creates an orphan cleanup pass.
func NewCleaner(cache CacheWalker, documents DocpathLister, log logger.Logger) *Cleaner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cleaner{
		cache:     cache,
		documents: documents,
		logger:    log,
	}
}

// Run scans the document cache and deletes every file whose path is not
// referenced by any document row. Deletion failures are counted and logged;
// they do not abort the pass.
func (c *Cleaner) Run(ctx context.Context, opts CleanupOptions) (CleanupSummary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultCleanupBatchSize
	}

	paths, err := c.documents.ListDocpaths(ctx)
	if err != nil {
		return CleanupSummary{}, fmt.Errorf("list referenced docpaths: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	var summary CleanupSummary
	var orphans []string
	err = c.cache.Walk(func(docpath string) error {
		summary.Scanned++
		if _, ok := referenced[docpath]; !ok {
			orphans = append(orphans, docpath)
		}
		return ctx.Err()
	})
	if err != nil {
		return summary, fmt.Errorf("walk document cache: %w", err)
	}
	summary.Orphaned = len(orphans)

	if len(orphans) == 0 {
		c.logger.Info("No orphaned document files found",
			logger.Int("scanned", summary.Scanned),
		)
		return summary, nil
	}

	if opts.DryRun {
		for _, docpath := range orphans {
			c.logger.Info("Would delete orphaned document file",
				logger.String("docpath", docpath),
			)
		}
		c.logger.Info("Dry run complete",
			logger.Int("scanned", summary.Scanned),
			logger.Int("orphaned", summary.Orphaned),
		)
		return summary, nil
	}

	for i, docpath := range orphans {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, fmt.Errorf("cleanup cancelled: %w", ctxErr)
		}

		if delErr := c.cache.Delete(docpath); delErr != nil {
			summary.Failed++
			c.logger.Error("Failed to delete orphaned document file",
				logger.String("docpath", docpath),
				logger.Error(delErr),
			)
			continue
		}
		summary.Deleted++

		if (i+1)%opts.BatchSize == 0 {
			c.logger.Info("Cleanup progress",
				logger.Int("deleted", summary.Deleted),
				logger.Int("orphaned", summary.Orphaned),
			)
		}
	}

	c.logger.Info("Cleanup complete",
		logger.Int("scanned", summary.Scanned),
		logger.Int("orphaned", summary.Orphaned),
		logger.Int("deleted", summary.Deleted),
		logger.Int("failed", summary.Failed),
	)

	return summary, nil
}
