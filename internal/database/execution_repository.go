package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/docwatch/internal/domain"
)

// ExecutionRepository handles database operations for sync execution records.
// Records are append-only: the engine never updates or deletes them, and the
// consecutive-failure count is derived from them rather than kept as a
// mutable counter.
type ExecutionRepository struct {
	db *sqlx.DB
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sqlx.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create appends a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *domain.SyncExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	query := `
		INSERT INTO document_sync_executions (id, queue_id, status, result, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		execution.ID,
		execution.QueueID,
		execution.Status,
		execution.Result,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// CountConsecutiveFailures returns the number of failed executions recorded
// for a queue entry since its most recent success. Entries with no success
// yet count every failure.
func (r *ExecutionRepository) CountConsecutiveFailures(ctx context.Context, queueID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM document_sync_executions
		WHERE queue_id = $1
		  AND status = $2
		  AND created_at > COALESCE(
			(SELECT MAX(created_at)
			 FROM document_sync_executions
			 WHERE queue_id = $1 AND status = $3),
			'epoch'::timestamptz
		  )
	`

	err := r.db.GetContext(ctx, &count, query, queueID, domain.ExecStatusFailed, domain.ExecStatusSuccess)
	if err != nil {
		return 0, fmt.Errorf("failed to count consecutive failures: %w", err)
	}

	return count, nil
}

// ListByQueueID retrieves the most recent executions for a queue entry.
func (r *ExecutionRepository) ListByQueueID(ctx context.Context, queueID string, limit int) ([]*domain.SyncExecution, error) {
	var executions []*domain.SyncExecution
	query := `
		SELECT id, queue_id, status, result, created_at
		FROM document_sync_executions
		WHERE queue_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &executions, query, queueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	if executions == nil {
		executions = []*domain.SyncExecution{}
	}

	return executions, nil
}
