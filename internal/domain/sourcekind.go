package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceKind identifies the connector that originally ingested a document
// and is responsible for re-fetching it.
type SourceKind string

const (
	// SourceLink is a generic scraped web page.
	SourceLink SourceKind = "link"
	// SourceYouTube is a transcribed YouTube video.
	SourceYouTube SourceKind = "youtube"
	// SourceConfluence is a Confluence wiki page.
	SourceConfluence SourceKind = "confluence"
	// SourceGitHub is a file from a GitHub repository.
	SourceGitHub SourceKind = "github"
	// SourceGitLab is a file from a GitLab repository.
	SourceGitLab SourceKind = "gitlab"
	// SourceDrupalWiki is a Drupal wiki page.
	SourceDrupalWiki SourceKind = "drupalwiki"
)

// ParseSourceKind converts a string to a SourceKind.
// Unknown kinds return ErrInvalidMetadata; the watched set only ever holds
// documents a connector can re-fetch.
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceLink, SourceYouTube, SourceConfluence, SourceGitHub, SourceGitLab, SourceDrupalWiki:
		return SourceKind(s), nil
	default:
		return "", fmt.Errorf("unsupported source kind %q: %w", s, ErrInvalidMetadata)
	}
}

// UsesDirectLink reports whether re-fetching this kind takes the raw source
// URL. The remaining kinds resolve their own locator from the full
// chunkSource string.
func (k SourceKind) UsesDirectLink() bool {
	switch k {
	case SourceLink, SourceYouTube:
		return true
	case SourceConfluence, SourceGitHub, SourceGitLab, SourceDrupalWiki:
		return false
	}
	return false
}

// String returns the kind as stored in metadata.
func (k SourceKind) String() string {
	return string(k)
}

// ParseChunkSource splits a "<kind>://<locator>" metadata value into a
// SourceRef. The locator part is percent-decoded for direct-link kinds.
func ParseChunkSource(raw string) (SourceRef, error) {
	prefix, rest, found := strings.Cut(raw, "://")
	if !found || prefix == "" || rest == "" {
		return SourceRef{}, fmt.Errorf("malformed chunkSource %q: %w", raw, ErrInvalidMetadata)
	}

	kind, err := ParseSourceKind(prefix)
	if err != nil {
		return SourceRef{}, err
	}

	source, err := url.PathUnescape(rest)
	if err != nil {
		return SourceRef{}, fmt.Errorf("malformed chunkSource locator %q: %w", rest, ErrInvalidMetadata)
	}

	return SourceRef{
		Kind:        kind,
		Source:      source,
		ChunkSource: raw,
	}, nil
}
