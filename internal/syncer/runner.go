// Package syncer implements the watched-document synchronization engine:
// selecting due queue entries, re-fetching their source content through the
// collector, rebuilding vectors when content changed, and propagating the
// update to every workspace holding a copy of the same source file.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/docwatch/internal/collector"
	"github.com/jonesrussell/docwatch/internal/domain"
	"github.com/jonesrussell/docwatch/internal/logger"
	"github.com/jonesrussell/docwatch/internal/metrics"
)

// QueueStore persists per-document staleness state.
type QueueStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.SyncQueueEntry, error)
	UpdateSyncTimes(ctx context.Context, id string, lastSyncedAt, nextSyncAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ExecutionLog appends sync attempt records and derives the
// consecutive-failure count that drives the unwatch decision.
type ExecutionLog interface {
	Create(ctx context.Context, execution *domain.SyncExecution) error
	CountConsecutiveFailures(ctx context.Context, queueID string) (int, error)
}

// DocumentStore loads documents and resolves the copies other workspaces
// hold of the same source file.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByFilename(ctx context.Context, filename, excludeID string) ([]*domain.Document, error)
	SetWatched(ctx context.Context, id string, watched bool) error
}

// ContentFetcher re-fetches source content through the collector API.
type ContentFetcher interface {
	IsOnline(ctx context.Context) bool
	Resync(ctx context.Context, kind domain.SourceKind, opts collector.ResyncOptions) (string, error)
}

// CacheStore reads and writes the on-disk document representations.
type CacheStore interface {
	Read(docpath string) (*domain.DocumentRepresentation, error)
	Write(docpath string, rep *domain.DocumentRepresentation) error
}

// VectorIndex maintains per-workspace vector namespaces.
type VectorIndex interface {
	DeleteDocument(ctx context.Context, workspaceSlug, docID string) error
	AddDocument(ctx context.Context, workspaceSlug string, rep *domain.DocumentRepresentation, forceReembed bool) error
}

// Options configure a single sync pass.
type Options struct {
	// MaxDocuments truncates the batch of due entries when positive.
	MaxDocuments int
	// DryRun reports intended actions without writing to the vector index,
	// document cache, queue, or execution log.
	DryRun bool
}

// Summary reports the outcome of one sync pass.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
}

// RunnerParams contains dependencies for creating a Runner.
type RunnerParams struct {
	Queues    QueueStore
	Log       ExecutionLog
	Documents DocumentStore
	Fetcher   ContentFetcher
	Cache     CacheStore
	Vectors   VectorIndex

	// Metrics may be nil; a nil Metrics records nothing.
	Metrics *metrics.Metrics
	Logger  logger.Logger

	// MaxRepeatFailures is the consecutive fetch failure count at which a
	// document is unwatched. Zero or negative falls back to the default.
	MaxRepeatFailures int

	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// DefaultMaxRepeatFailures is the number of consecutive fetch failures
// after which a document is removed from the watched set.
const DefaultMaxRepeatFailures = 5

// Runner executes sync passes over the watched-document queue.
type Runner struct {
	queues    QueueStore
	execs     ExecutionLog
	documents DocumentStore
	fetcher   ContentFetcher
	cache     CacheStore
	vectors   VectorIndex

	metrics *metrics.Metrics
	logger  logger.Logger

	maxRepeatFailures int
	now               func() time.Time
}

// NewRunner creates a sync runner.
func NewRunner(p RunnerParams) *Runner {
	if p.MaxRepeatFailures <= 0 {
		p.MaxRepeatFailures = DefaultMaxRepeatFailures
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = logger.NewNop()
	}

	return &Runner{
		queues:            p.Queues,
		execs:             p.Log,
		documents:         p.Documents,
		fetcher:           p.Fetcher,
		cache:             p.Cache,
		vectors:           p.Vectors,
		metrics:           p.Metrics,
		logger:            p.Logger,
		maxRepeatFailures: p.MaxRepeatFailures,
		now:               p.Now,
	}
}

// RunDueSyncs performs one batch pass over every queue entry whose next
// sync time has passed. Entries are processed strictly sequentially; an
// error in one entry is recorded and the pass continues with the next.
// The error return covers only failures outside the per-entry boundary
// (listing the queue, context cancellation).
func (r *Runner) RunDueSyncs(ctx context.Context, opts Options) (Summary, error) {
	start := r.now()

	entries, err := r.queues.ListDue(ctx, start, opts.MaxDocuments)
	if err != nil {
		return Summary{}, fmt.Errorf("list due queue entries: %w", err)
	}

	if len(entries) == 0 {
		r.logger.Info("No outstanding documents to sync")
		return Summary{}, nil
	}

	// A collector outage is global: abort before touching any entry so no
	// document accrues a failure from an upstream outage.
	if !r.fetcher.IsOnline(ctx) {
		r.logger.Warn("Could not reach collector API; skipping sync run",
			logger.Int("due", len(entries)),
		)
		return Summary{}, nil
	}

	r.logger.Info("Stale watched documents will be updated now",
		logger.Int("due", len(entries)),
		logger.Bool("dry_run", opts.DryRun),
	)

	var summary Summary
	for _, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, fmt.Errorf("sync run cancelled: %w", ctxErr)
		}

		status, procErr := r.runEntry(ctx, entry, opts.DryRun)
		summary.Processed++

		if procErr != nil {
			status = domain.ExecStatusFailed
			r.logger.Error("Unexpected error processing queue entry; continuing run",
				logger.String("queue_id", entry.ID),
				logger.String("document_id", entry.DocumentID),
				logger.Error(procErr),
			)
			if !opts.DryRun {
				r.recordFailure(ctx, entry.ID, domain.SyncResult{Reason: procErr.Error()})
			}
		}

		if status == domain.ExecStatusFailed {
			summary.Failed++
		} else {
			summary.Succeeded++
		}

		if !opts.DryRun {
			r.metrics.RecordDocument(string(status))
		}
	}

	if !opts.DryRun {
		r.metrics.RecordRun(time.Since(start))
	}

	r.logger.Info("Sync pass complete",
		logger.Int("processed", summary.Processed),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
	)

	return summary, nil
}

// runEntry executes the state machine for one entry, converting a panic
// into an error so a single document can never abort the whole pass.
func (r *Runner) runEntry(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	dryRun bool,
) (status domain.ExecStatus, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			status = domain.ExecStatusFailed
			err = fmt.Errorf("panic processing queue entry: %v", rec)
		}
	}()

	return r.processEntry(ctx, entry, dryRun)
}

// recordFailure appends a failed execution record. Used at the per-entry
// error boundary where the failure itself must not abort the run, so write
// errors are logged and dropped.
func (r *Runner) recordFailure(ctx context.Context, queueID string, result domain.SyncResult) {
	execution := &domain.SyncExecution{
		QueueID: queueID,
		Status:  domain.ExecStatusFailed,
		Result:  result.ToMap(),
	}
	if err := r.execs.Create(ctx, execution); err != nil {
		r.logger.Error("Failed to record execution for failed entry",
			logger.String("queue_id", queueID),
			logger.Error(err),
		)
	}
}
