package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/docwatch/internal/collector"
	"github.com/jonesrussell/docwatch/internal/database"
	"github.com/jonesrussell/docwatch/internal/doccache"
	"github.com/jonesrussell/docwatch/internal/domain"
	"github.com/jonesrussell/docwatch/internal/logger"
)

// processEntry runs one queue entry through the sync pipeline: validate the
// document, re-fetch its source content, compare against the cached
// representation, and either record an unchanged pass or rebuild vectors and
// propagate the update to every workspace holding the same file.
func (r *Runner) processEntry(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	dryRun bool,
) (domain.ExecStatus, error) {
	doc, err := r.documents.GetByID(ctx, entry.DocumentID)
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			return r.handleInvalidDocument(ctx, entry, nil, dryRun)
		}
		return domain.ExecStatusFailed, fmt.Errorf("load document %s: %w", entry.DocumentID, err)
	}

	ref, err := doc.SourceRef()
	if err != nil {
		r.logger.Warn("Document cannot be re-fetched; removing from watched set",
			logger.String("document_id", doc.ID),
			logger.String("filename", doc.Filename),
			logger.Error(err),
		)
		return r.handleInvalidDocument(ctx, entry, doc, dryRun)
	}

	r.logger.Info("Syncing watched document",
		logger.String("filename", doc.Filename),
		logger.String("workspace", doc.WorkspaceSlug),
		logger.String("kind", ref.Kind.String()),
	)

	content, err := r.fetch(ctx, ref)
	if err != nil {
		return r.handleFetchFailure(ctx, entry, doc, err, dryRun)
	}

	cached, err := r.cache.Read(doc.Docpath)
	if err != nil {
		if !errors.Is(err, doccache.ErrNotFound) {
			return domain.ExecStatusFailed, fmt.Errorf("read cached document %s: %w", doc.Docpath, err)
		}
		// Cache file missing: rebuild it from the fetched content.
		cached = &domain.DocumentRepresentation{}
	}

	if cached.PageContent == content {
		return r.handleUnchanged(ctx, entry, doc, dryRun)
	}

	return r.handleChanged(ctx, entry, doc, *cached, content, dryRun)
}

// fetch asks the collector to re-fetch the source. Direct-link kinds send
// the decoded source URL; connector kinds send the raw chunkSource for the
// connector to resolve itself.
func (r *Runner) fetch(ctx context.Context, ref domain.SourceRef) (string, error) {
	opts := collector.ResyncOptions{}
	if ref.Kind.UsesDirectLink() {
		opts.Link = ref.Source
	} else {
		opts.ChunkSource = ref.ChunkSource
	}
	return r.fetcher.Resync(ctx, ref.Kind, opts)
}

// handleInvalidDocument unwatches a document that can never sync again:
// the row is gone or its metadata no longer names a usable source. doc may
// be nil when the row itself is missing.
func (r *Runner) handleInvalidDocument(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	doc *domain.Document,
	dryRun bool,
) (domain.ExecStatus, error) {
	result := domain.SyncResult{Reason: domain.ReasonInvalidDocument}
	if doc != nil {
		result.Filename = doc.Filename
	}

	if dryRun {
		r.logger.Info("Would unwatch invalid document",
			logger.String("queue_id", entry.ID),
			logger.String("document_id", entry.DocumentID),
		)
		return domain.ExecStatusFailed, nil
	}

	if err := r.recordExecution(ctx, entry.ID, domain.ExecStatusFailed, result); err != nil {
		return domain.ExecStatusFailed, err
	}
	if err := r.unwatch(ctx, entry, doc); err != nil {
		return domain.ExecStatusFailed, err
	}

	return domain.ExecStatusFailed, nil
}

// handleFetchFailure records a failed attempt and unwatches the document
// once the consecutive-failure threshold is reached. Below the threshold
// the queue entry keeps its next sync time, so the document stays due and
// is retried on the next pass.
func (r *Runner) handleFetchFailure(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	doc *domain.Document,
	fetchErr error,
	dryRun bool,
) (domain.ExecStatus, error) {
	reason := fetchErr.Error()
	if errors.Is(fetchErr, collector.ErrNoContent) {
		reason = domain.ReasonNoContent
	}

	prior, err := r.execs.CountConsecutiveFailures(ctx, entry.ID)
	if err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("count consecutive failures: %w", err)
	}
	unwatching := prior+1 >= r.maxRepeatFailures

	r.logger.Warn("Failed to re-fetch document content",
		logger.String("filename", doc.Filename),
		logger.String("workspace", doc.WorkspaceSlug),
		logger.Int("consecutive_failures", prior+1),
		logger.Bool("unwatching", unwatching),
		logger.Error(fetchErr),
	)

	if dryRun {
		return domain.ExecStatusFailed, nil
	}

	result := domain.SyncResult{Filename: doc.Filename, Reason: reason}
	if err := r.recordExecution(ctx, entry.ID, domain.ExecStatusFailed, result); err != nil {
		return domain.ExecStatusFailed, err
	}

	if unwatching {
		if err := r.unwatch(ctx, entry, doc); err != nil {
			return domain.ExecStatusFailed, err
		}
	}

	return domain.ExecStatusFailed, nil
}

// handleUnchanged closes out an attempt whose fetched content matches the
// cache: advance the sync window and append an exited record. No vector or
// cache writes happen.
func (r *Runner) handleUnchanged(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	doc *domain.Document,
	dryRun bool,
) (domain.ExecStatus, error) {
	r.logger.Info("Document content unchanged",
		logger.String("filename", doc.Filename),
		logger.String("workspace", doc.WorkspaceSlug),
	)

	if dryRun {
		return domain.ExecStatusExited, nil
	}

	now := r.now()
	if err := r.queues.UpdateSyncTimes(ctx, entry.ID, now, entry.NextSyncAfter(now)); err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("reschedule queue entry: %w", err)
	}

	result := domain.SyncResult{
		Filename: doc.Filename,
		Reason:   domain.ReasonContentUnchanged,
	}
	if err := r.recordExecution(ctx, entry.ID, domain.ExecStatusExited, result); err != nil {
		return domain.ExecStatusFailed, err
	}

	return domain.ExecStatusExited, nil
}

// handleChanged rebuilds the primary workspace's vectors from the fetched
// content, rewrites the cache file, propagates the update to every other
// workspace holding the same file, and reschedules the entry.
func (r *Runner) handleChanged(
	ctx context.Context,
	entry *domain.SyncQueueEntry,
	doc *domain.Document,
	cached domain.DocumentRepresentation,
	content string,
	dryRun bool,
) (domain.ExecStatus, error) {
	if dryRun {
		r.logger.Info("Would update document content and propagate",
			logger.String("filename", doc.Filename),
			logger.String("workspace", doc.WorkspaceSlug),
		)
		return domain.ExecStatusSuccess, nil
	}

	now := r.now()
	updated := cached.WithContent(content, doc.DocID, now)

	if err := r.vectors.DeleteDocument(ctx, doc.WorkspaceSlug, doc.DocID); err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("delete stale vectors: %w", err)
	}
	if err := r.vectors.AddDocument(ctx, doc.WorkspaceSlug, &updated, true); err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("add updated vectors: %w", err)
	}
	if err := r.cache.Write(doc.Docpath, &updated); err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("write cached document: %w", err)
	}

	workspaces, err := r.propagate(ctx, doc, updated)
	if err != nil {
		return domain.ExecStatusFailed, err
	}

	if err := r.queues.UpdateSyncTimes(ctx, entry.ID, now, entry.NextSyncAfter(now)); err != nil {
		return domain.ExecStatusFailed, fmt.Errorf("reschedule queue entry: %w", err)
	}

	result := domain.SyncResult{
		Filename:           doc.Filename,
		WorkspacesModified: workspaces,
	}
	if err := r.recordExecution(ctx, entry.ID, domain.ExecStatusSuccess, result); err != nil {
		return domain.ExecStatusFailed, err
	}

	r.logger.Info("Document content updated",
		logger.String("filename", doc.Filename),
		logger.Strings("workspaces_modified", workspaces),
	)

	return domain.ExecStatusSuccess, nil
}

// propagate pushes the updated representation into every other workspace
// holding a copy of the same file. Content is identical across copies, so
// propagation adds reuse the cached embeddings instead of re-embedding.
// A failure for one consumer is logged and skips that consumer only; the
// primary update already happened.
func (r *Runner) propagate(
	ctx context.Context,
	doc *domain.Document,
	updated domain.DocumentRepresentation,
) ([]string, error) {
	consumers, err := r.documents.ListByFilename(ctx, doc.Filename, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list consumer documents: %w", err)
	}

	workspaces := []string{doc.WorkspaceSlug}
	for _, consumer := range consumers {
		// Each copy keeps its own vector id in its namespace.
		rep := updated
		rep.DocID = consumer.DocID

		if delErr := r.vectors.DeleteDocument(ctx, consumer.WorkspaceSlug, consumer.DocID); delErr != nil {
			r.logger.Error("Failed to delete consumer vectors; skipping workspace",
				logger.String("filename", doc.Filename),
				logger.String("workspace", consumer.WorkspaceSlug),
				logger.Error(delErr),
			)
			continue
		}
		if addErr := r.vectors.AddDocument(ctx, consumer.WorkspaceSlug, &rep, false); addErr != nil {
			r.logger.Error("Failed to add consumer vectors; skipping workspace",
				logger.String("filename", doc.Filename),
				logger.String("workspace", consumer.WorkspaceSlug),
				logger.Error(addErr),
			)
			continue
		}

		workspaces = append(workspaces, consumer.WorkspaceSlug)
	}

	return workspaces, nil
}

// recordExecution appends one execution record for the attempt.
func (r *Runner) recordExecution(
	ctx context.Context,
	queueID string,
	status domain.ExecStatus,
	result domain.SyncResult,
) error {
	execution := &domain.SyncExecution{
		QueueID: queueID,
		Status:  status,
		Result:  result.ToMap(),
	}
	if err := r.execs.Create(ctx, execution); err != nil {
		return fmt.Errorf("record %s execution: %w", status, err)
	}
	return nil
}

// unwatch removes a document from the watched set: the terminal execution
// record is already written, so drop the queue entry and clear the watched
// flag on the document row when it still exists.
func (r *Runner) unwatch(ctx context.Context, entry *domain.SyncQueueEntry, doc *domain.Document) error {
	if err := r.queues.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete queue entry: %w", err)
	}

	if doc == nil {
		return nil
	}
	if err := r.documents.SetWatched(ctx, doc.ID, false); err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
		return fmt.Errorf("clear watched flag: %w", err)
	}

	return nil
}
