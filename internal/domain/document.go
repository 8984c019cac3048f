// Package domain provides domain models used across the application.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMetadata indicates a document whose stored metadata cannot be
// parsed into a source kind and locator. Such documents cannot be refreshed
// and are removed from the watched set.
var ErrInvalidMetadata = errors.New("invalid document metadata")

// Document represents one workspace's copy of a stored document.
// Multiple rows may share the same filename across workspaces; they are
// independent copies kept consistent by sync propagation.
type Document struct {
	// Identity
	ID       string `db:"id"       json:"id"`
	DocID    string `db:"doc_id"   json:"doc_id"` // id the vector index stores chunks under
	Filename string `db:"filename" json:"filename"`
	Docpath  string `db:"docpath"  json:"docpath"` // cache-relative path of the JSON representation

	// Owning workspace (joined from the workspaces table)
	WorkspaceID   string `db:"workspace_id"   json:"workspace_id"`
	WorkspaceSlug string `db:"workspace_slug" json:"workspace_slug"`
	WorkspaceName string `db:"workspace_name" json:"workspace_name"`

	// State
	Metadata JSONBMap `db:"metadata" json:"metadata,omitempty"`
	Pinned   bool     `db:"pinned"   json:"pinned"`
	Watched  bool     `db:"watched"  json:"watched"`

	// Timestamps
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SourceRef is the parsed sync target of a document: which connector kind
// fetches it and the locator that connector needs.
type SourceRef struct {
	Kind SourceKind
	// Source is the locator after the kind prefix, percent-decoded.
	// For link and youtube kinds this is the raw source URL.
	Source string
	// ChunkSource is the full undecoded "<kind>://<locator>" string as
	// stored in metadata. Connector kinds that resolve their own locator
	// (confluence, github, gitlab, drupalwiki) receive this verbatim.
	ChunkSource string
}

// SourceRef derives the document's sync target from its stored metadata.
// Returns ErrInvalidMetadata when metadata is absent, carries no chunkSource,
// or names an unsupported kind.
func (d *Document) SourceRef() (SourceRef, error) {
	if len(d.Metadata) == 0 {
		return SourceRef{}, fmt.Errorf("document %s: %w", d.ID, ErrInvalidMetadata)
	}

	raw, ok := d.Metadata["chunkSource"].(string)
	if !ok || raw == "" {
		return SourceRef{}, fmt.Errorf("document %s has no chunkSource: %w", d.ID, ErrInvalidMetadata)
	}

	ref, err := ParseChunkSource(raw)
	if err != nil {
		return SourceRef{}, fmt.Errorf("document %s: %w", d.ID, err)
	}

	return ref, nil
}

// DocumentRepresentation is the cached JSON body of a document as stored on
// disk. The json tags match the on-disk format shared with the ingestion
// pipeline and must not change.
type DocumentRepresentation struct {
	ID                 string `json:"id"`
	URL                string `json:"url,omitempty"`
	Title              string `json:"title"`
	DocAuthor          string `json:"docAuthor,omitempty"`
	Description        string `json:"description,omitempty"`
	DocSource          string `json:"docSource,omitempty"`
	ChunkSource        string `json:"chunkSource,omitempty"`
	Published          string `json:"published,omitempty"`
	WordCount          int    `json:"wordCount"`
	PageContent        string `json:"pageContent"`
	TokenCountEstimate int    `json:"token_count_estimate"`
	DocID              string `json:"docId,omitempty"`
}

// PublishedTimeFormat is the timestamp layout used for the published field.
const PublishedTimeFormat = "2006-01-02 15:04:05"

// WithContent returns a copy carrying new page content, rekeyed to docID,
// with the published timestamp and derived counts refreshed. All other
// fields are preserved.
func (r DocumentRepresentation) WithContent(content, docID string, now time.Time) DocumentRepresentation {
	updated := r
	updated.PageContent = content
	updated.DocID = docID
	updated.Published = now.Format(PublishedTimeFormat)
	updated.WordCount = countWords(content)
	updated.TokenCountEstimate = estimateTokens(content)
	return updated
}

// MarshalIndent renders the representation in the on-disk JSON layout.
func (r DocumentRepresentation) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document representation: %w", err)
	}
	return data, nil
}

// countWords counts whitespace-separated words in content.
func countWords(content string) int {
	count := 0
	inWord := false
	for _, r := range content {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				count++
			}
			inWord = true
		}
	}
	return count
}

// estimateTokens approximates the token count at four characters per token.
func estimateTokens(content string) int {
	const charsPerToken = 4
	if content == "" {
		return 0
	}
	return (len(content) + charsPerToken - 1) / charsPerToken
}
