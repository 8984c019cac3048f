package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/docwatch/internal/database"
	"github.com/jonesrussell/docwatch/internal/domain"
)

func TestExecutionRepository_Create(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewExecutionRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO document_sync_executions").
		WithArgs(sqlmock.AnyArg(), "queue-1", "failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	execution := &domain.SyncExecution{
		QueueID: "queue-1",
		Status:  domain.ExecStatusFailed,
		Result: domain.SyncResult{
			Filename:           "guide.json",
			WorkspacesModified: []string{},
			Reason:             domain.ReasonNoContent,
		}.ToMap(),
	}

	if createErr := repo.Create(ctx, execution); createErr != nil {
		t.Fatalf("Create() error = %v", createErr)
	}

	if execution.ID == "" {
		t.Error("expected execution.ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestExecutionRepository_CountConsecutiveFailures(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewExecutionRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("queue-1", "failed", "success").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, countErr := repo.CountConsecutiveFailures(ctx, "queue-1")
	if countErr != nil {
		t.Fatalf("CountConsecutiveFailures() error = %v", countErr)
	}

	if count != 4 {
		t.Errorf("expected 4 consecutive failures, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestExecutionRepository_ListByQueueID(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	repo := database.NewExecutionRepository(db)
	ctx := context.Background()

	now := time.Now()
	columns := []string{"id", "queue_id", "status", "result", "created_at"}

	mock.ExpectQuery("FROM document_sync_executions").
		WithArgs("queue-1", 10).
		WillReturnRows(
			sqlmock.NewRows(columns).
				AddRow("exec-2", "queue-1", "success", []byte(`{"filename":"guide.json","workspacesModified":["ws-main"]}`), now).
				AddRow("exec-1", "queue-1", "failed", []byte(`{"filename":"guide.json","workspacesModified":[],"reason":"No content found."}`), now.Add(-time.Hour)),
		)

	executions, listErr := repo.ListByQueueID(ctx, "queue-1", 10)
	if listErr != nil {
		t.Fatalf("ListByQueueID() error = %v", listErr)
	}

	if len(executions) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(executions))
	}

	if executions[0].Status != domain.ExecStatusSuccess {
		t.Errorf("expected newest execution first, got status %s", executions[0].Status)
	}

	result, parseErr := domain.ParseSyncResult(executions[1].Result)
	if parseErr != nil {
		t.Fatalf("ParseSyncResult() error = %v", parseErr)
	}

	if result.Reason != domain.ReasonNoContent {
		t.Errorf("expected reason %q, got %q", domain.ReasonNoContent, result.Reason)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
