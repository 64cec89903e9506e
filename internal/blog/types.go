// Package blog implements the provider-routing blog service: a keyed
// registry of backends, per-session active-provider selection, and the
// publish workflow with its optional human review gate.
package blog

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a post on its backend.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusScheduled Status = "scheduled"
	StatusPending   Status = "pending"
	StatusPrivate   Status = "private"
)

// Valid reports whether s is one of the known post statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusScheduled, StatusPending, StatusPrivate:
		return true
	}
	return false
}

// FeatureImage references an uploaded image attached to a post.
type FeatureImage struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

// Post is a blog post as exposed by a provider. Posts are owned by the
// backend; this service only ever holds references to them.
type Post struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Content      string        `json:"content,omitempty"`
	Status       Status        `json:"status"`
	Tags         []string      `json:"tags,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	FeatureImage *FeatureImage `json:"feature_image,omitempty"`
	URL          string        `json:"url,omitempty"`
}

// CreatePostData carries the caller-supplied fields of a new post.
// Server-assigned fields (id, timestamps) are never accepted here and
// status always starts as draft.
type CreatePostData struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdatePostData is a partial update of the current post. Nil fields
// are left untouched.
type UpdatePostData struct {
	Title        *string       `json:"title,omitempty"`
	Content      *string       `json:"content,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	FeatureImage *FeatureImage `json:"feature_image,omitempty"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
}

// PostFilter narrows GetRecentPosts results.
type PostFilter struct {
	Status  Status
	Tag     string
	Keyword string
	Limit   int
}

// Service-level error taxonomy. Configuration and not-found errors are
// surfaced to the caller as-is; upstream provider errors are wrapped
// and propagated without retries.
var (
	ErrNoActiveProvider = errors.New("no active provider selected")
	ErrProviderNotFound = errors.New("provider not found")
	ErrNoPostSelected   = errors.New("no post selected")
	ErrPostNotFound     = errors.New("post not found")
	ErrValidation       = errors.New("validation failed")
)

// Validate rejects create requests before they reach the provider.
func (d CreatePostData) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if d.Content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	return nil
}

// Empty reports whether the update contains no changes.
func (d UpdatePostData) Empty() bool {
	return d.Title == nil && d.Content == nil && d.Tags == nil &&
		d.Status == nil && d.FeatureImage == nil && d.PublishedAt == nil
}
