package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/docwatch/internal/domain"
)

// documentColumns selects a document row with its owning workspace joined in.
const documentColumns = `
	d.id, d.doc_id, d.filename, d.docpath,
	d.workspace_id, w.slug AS workspace_slug, w.name AS workspace_name,
	d.metadata, d.pinned, d.watched,
	d.created_at, d.updated_at
`

// DocumentRepository handles database operations for workspace documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// GetByID retrieves a document by its row ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	query := `
		SELECT ` + documentColumns + `
		FROM workspace_documents d
		JOIN workspaces w ON w.id = d.workspace_id
		WHERE d.id = $1
	`

	err := r.db.GetContext(ctx, &doc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListByFilename retrieves every document sharing a filename, excluding one
// row. These are the other workspaces' copies a content change propagates to.
func (r *DocumentRepository) ListByFilename(ctx context.Context, filename, excludeID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	query := `
		SELECT ` + documentColumns + `
		FROM workspace_documents d
		JOIN workspaces w ON w.id = d.workspace_id
		WHERE d.filename = $1 AND d.id != $2
		ORDER BY d.created_at ASC
	`

	err := r.db.SelectContext(ctx, &docs, query, filename, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by filename: %w", err)
	}

	if docs == nil {
		docs = []*domain.Document{}
	}

	return docs, nil
}

// SetWatched flips the watched flag on a document.
func (r *DocumentRepository) SetWatched(ctx context.Context, id string, watched bool) error {
	query := `
		UPDATE workspace_documents
		SET watched = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, watched, id)
	if err != nil {
		return fmt.Errorf("failed to set watched flag: %w", err)
	}

	return execRequireRows(result, nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id))
}

// ListDocpaths returns the cache paths of every stored document.
// Used by the orphan cleanup pass to decide which cache files are still
// referenced.
func (r *DocumentRepository) ListDocpaths(ctx context.Context) ([]string, error) {
	var paths []string
	query := `SELECT docpath FROM workspace_documents`

	err := r.db.SelectContext(ctx, &paths, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list docpaths: %w", err)
	}

	if paths == nil {
		paths = []string{}
	}

	return paths, nil
}
