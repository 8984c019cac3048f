package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/docwatch/internal/domain"
)

const queueColumns = `
	id, document_id, staleness_window_ms,
	last_synced_at, next_sync_at,
	created_at, updated_at
`

// QueueRepository handles database operations for document sync queue entries.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository creates a new sync queue repository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Create inserts a queue entry for a document. A document has at most one
// entry; creating a duplicate is a no-op. Returns whether a row was created.
func (r *QueueRepository) Create(ctx context.Context, entry *domain.SyncQueueEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.StalenessWindowMs <= 0 {
		entry.StalenessWindowMs = domain.DefaultStalenessWindowMs
	}

	query := `
		INSERT INTO document_sync_queues (
			id, document_id, staleness_window_ms,
			last_synced_at, next_sync_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (document_id) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.DocumentID,
		entry.StalenessWindowMs,
		entry.LastSyncedAt,
		entry.NextSyncAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create queue entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetByDocumentID retrieves the queue entry owning a document.
func (r *QueueRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.SyncQueueEntry, error) {
	var entry domain.SyncQueueEntry
	query := `
		SELECT ` + queueColumns + `
		FROM document_sync_queues
		WHERE document_id = $1
	`

	err := r.db.GetContext(ctx, &entry, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s", ErrQueueEntryNotFound, documentID)
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return &entry, nil
}

// ListDue retrieves every entry whose next sync time has passed, oldest
// first. A positive limit truncates the batch.
func (r *QueueRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.SyncQueueEntry, error) {
	var entries []*domain.SyncQueueEntry
	query := `
		SELECT ` + queueColumns + `
		FROM document_sync_queues
		WHERE next_sync_at <= $1
		ORDER BY next_sync_at ASC
	`

	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &entries, query+` LIMIT $2`, now, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries, query, now)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list due queue entries: %w", err)
	}

	if entries == nil {
		entries = []*domain.SyncQueueEntry{}
	}

	return entries, nil
}

// UpdateSyncTimes advances an entry's last and next sync times after a
// completed attempt.
func (r *QueueRepository) UpdateSyncTimes(ctx context.Context, id string, lastSyncedAt, nextSyncAt time.Time) error {
	query := `
		UPDATE document_sync_queues
		SET last_synced_at = $1, next_sync_at = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, lastSyncedAt, nextSyncAt, id)
	if err != nil {
		return fmt.Errorf("failed to update queue sync times: %w", err)
	}

	return execRequireRows(result, nil, fmt.Errorf("%w: %s", ErrQueueEntryNotFound, id))
}

// Delete removes a queue entry. The document is no longer watched afterward.
func (r *QueueRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM document_sync_queues WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	return execRequireRows(result, nil, fmt.Errorf("%w: %s", ErrQueueEntryNotFound, id))
}

// QueueListItem is a queue entry joined with its document for display.
type QueueListItem struct {
	domain.SyncQueueEntry
	Filename      string `db:"filename"`
	WorkspaceSlug string `db:"workspace_slug"`
}

// List retrieves every queue entry with its document and workspace, due
// entries first.
func (r *QueueRepository) List(ctx context.Context) ([]*QueueListItem, error) {
	var items []*QueueListItem
	query := `
		SELECT q.id, q.document_id, q.staleness_window_ms,
		       q.last_synced_at, q.next_sync_at,
		       q.created_at, q.updated_at,
		       d.filename, w.slug AS workspace_slug
		FROM document_sync_queues q
		JOIN workspace_documents d ON d.id = q.document_id
		JOIN workspaces w ON w.id = d.workspace_id
		ORDER BY q.next_sync_at ASC
	`

	err := r.db.SelectContext(ctx, &items, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}

	if items == nil {
		items = []*QueueListItem{}
	}

	return items, nil
}
