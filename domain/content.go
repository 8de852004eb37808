// Package domain holds the entities shared by both moderation flows:
// the Flow A content cascade and the Flow B chat stream. Nothing in
// this package performs I/O or scoring; it only describes the shapes
// the rest of the engine passes around.
package domain

import "time"

// ContentKind enumerates the artifact types Flow A can classify.
type ContentKind string

const (
	ContentForumPost ContentKind = "forum-post"
	ContentImage     ContentKind = "image"
	ContentProfile   ContentKind = "profile"
	ContentLiveChat  ContentKind = "live-chat"
	ContentVideo     ContentKind = "video"
	ContentAudio     ContentKind = "audio"
)

// CreatorMetadata is free-form context about the author of a Content,
// supplied by the upstream adapter (account age, client, locale, ...).
type CreatorMetadata map[string]string

// Content is the immutable input to Flow A. An orchestrator run never
// mutates a Content; enrichment produces new records instead.
type Content struct {
	ID          string          `json:"content_id" validate:"required"`
	UserID      string          `json:"user_id" validate:"required"`
	Kind        ContentKind     `json:"content_type" validate:"required"`
	Text        string          `json:"text_content,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	MediaURLs   []string        `json:"media_urls,omitempty"`
	CreatedAt   time.Time       `json:"created_at" validate:"required"`
	ParentID    string          `json:"parent_id,omitempty"`
	ChannelID   string          `json:"channel_id,omitempty"`
	Metadata    CreatorMetadata `json:"metadata,omitempty"`
}

// HasMedia reports whether the content carries an image or any media
// reference — used by the orchestrator's fast-approve gate.
func (c Content) HasMedia() bool {
	return c.ImageURL != "" || len(c.MediaURLs) > 0
}

// Validate enforces the §3.1 invariant that a content record must
// carry at least one of text, image, or media.
func (c Content) Validate() error {
	if c.Text == "" && c.ImageURL == "" && len(c.MediaURLs) == 0 {
		return errContentEmpty
	}
	return nil
}

var errContentEmpty = contentError("content must carry text, an image, or media references")

type contentError string

func (e contentError) Error() string { return string(e) }
