package database

import "errors"

// Sentinel errors returned by the repositories. Callers distinguish "row is
// gone" from real database failures with errors.Is.
var (
	// ErrDocumentNotFound is returned when a document row does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrQueueEntryNotFound is returned when a sync queue entry does not exist.
	ErrQueueEntryNotFound = errors.New("sync queue entry not found")
)
