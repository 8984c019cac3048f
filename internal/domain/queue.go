package domain

import (
	"time"
)

// DefaultStalenessWindowMs is the default staleness window for a newly
// watched document: 7 days.
const DefaultStalenessWindowMs = 604_800_000

// SyncQueueEntry is the persisted staleness state of one watched document.
// At most one active entry exists per document.
type SyncQueueEntry struct {
	// Identity
	ID         string `db:"id"          json:"id"`
	DocumentID string `db:"document_id" json:"document_id"`

	// Scheduling state
	StalenessWindowMs int64     `db:"staleness_window_ms" json:"staleness_window_ms"`
	LastSyncedAt      time.Time `db:"last_synced_at"      json:"last_synced_at"`
	NextSyncAt        time.Time `db:"next_sync_at"        json:"next_sync_at"`

	// Timestamps
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StalenessWindow returns the entry's staleness window as a duration,
// falling back to the default when unset.
func (e *SyncQueueEntry) StalenessWindow() time.Duration {
	ms := e.StalenessWindowMs
	if ms <= 0 {
		ms = DefaultStalenessWindowMs
	}
	return time.Duration(ms) * time.Millisecond
}

// NextSyncAfter computes when the entry next becomes due after a sync at
// now. Deliberately deterministic with no jitter: next = now + window.
func (e *SyncQueueEntry) NextSyncAfter(now time.Time) time.Time {
	return now.Add(e.StalenessWindow())
}

// Due reports whether the entry is due for a sync at now.
func (e *SyncQueueEntry) Due(now time.Time) bool {
	return !e.NextSyncAt.After(now)
}
