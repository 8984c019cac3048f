package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExecStatus is the outcome of a single sync attempt.
type ExecStatus string

const (
	// ExecStatusSuccess means content was refreshed and propagated.
	ExecStatusSuccess ExecStatus = "success"
	// ExecStatusFailed means the attempt failed (no content, invalid
	// document, or an unexpected error).
	ExecStatusFailed ExecStatus = "failed"
	// ExecStatusExited means the attempt completed without changes
	// (content unchanged).
	ExecStatusExited ExecStatus = "exited"
)

// SyncExecution is one append-only record of a sync attempt.
// Records are never updated; the consecutive-failure count that drives the
// unwatch decision is derived from them.
type SyncExecution struct {
	ID        string     `db:"id"         json:"id"`
	QueueID   string     `db:"queue_id"   json:"queue_id"`
	Status    ExecStatus `db:"status"     json:"status"`
	Result    JSONBMap   `db:"result"     json:"result,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SyncResult is the structured payload stored in an execution record.
type SyncResult struct {
	Filename           string   `json:"filename"`
	WorkspacesModified []string `json:"workspacesModified"`
	Reason             string   `json:"reason,omitempty"`
}

// Reasons recorded in execution results.
const (
	ReasonInvalidDocument  = "Invalid document."
	ReasonNoContent        = "No content found."
	ReasonContentUnchanged = "Content unchanged."
)

// ToMap converts the result to the JSONB map stored on the record.
func (r SyncResult) ToMap() JSONBMap {
	workspaces := r.WorkspacesModified
	if workspaces == nil {
		workspaces = []string{}
	}
	m := JSONBMap{
		"filename":           r.Filename,
		"workspacesModified": workspaces,
	}
	if r.Reason != "" {
		m["reason"] = r.Reason
	}
	return m
}

// ParseSyncResult decodes a record's result map back into a SyncResult.
func ParseSyncResult(m JSONBMap) (SyncResult, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return SyncResult{}, fmt.Errorf("encode result map: %w", err)
	}
	var result SyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		return SyncResult{}, fmt.Errorf("decode sync result: %w", err)
	}
	return result, nil
}
