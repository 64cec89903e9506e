// Package memory implements an in-process blog backend. It backs the
// connectivity self-test, development mode, and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/session"
)

// Provider stores posts in memory. The current-post selection is
// tracked per session id, so concurrent sessions never interfere.
type Provider struct {
	description string
	imageModel  string
	cdnName     string
	now         func() time.Time

	mu      sync.Mutex
	posts   map[string]*blog.Post
	current map[string]string // session id -> post id
}

// Options configures a memory provider.
type Options struct {
	Description          string
	ImageGenerationModel string
	CDNName              string

	// Now overrides the clock in tests.
	Now func() time.Time
}

// New creates an empty memory provider.
func New(opts Options) *Provider {
	if opts.Description == "" {
		opts.Description = "In-memory blog backend"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		description: opts.Description,
		imageModel:  opts.ImageGenerationModel,
		cdnName:     opts.CDNName,
		now:         opts.Now,
		posts:       make(map[string]*blog.Post),
		current:     make(map[string]string),
	}
}

func (p *Provider) Description() string          { return p.description }
func (p *Provider) ImageGenerationModel() string { return p.imageModel }
func (p *Provider) CDNName() string              { return p.cdnName }

// Attach is a no-op; the backend needs no per-session setup.
func (p *Provider) Attach(ctx context.Context, sess *session.Session) error {
	return nil
}

// GetAllPosts returns every post, newest first.
func (p *Provider) GetAllPosts(ctx context.Context, sess *session.Session) ([]blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedPostsLocked(), nil
}

// GetRecentPosts returns the newest posts matching the filter.
func (p *Provider) GetRecentPosts(ctx context.Context, filter blog.PostFilter, sess *session.Session) ([]blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []blog.Post
	for _, post := range p.sortedPostsLocked() {
		if filter.Status != "" && post.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !hasTag(post.Tags, filter.Tag) {
			continue
		}
		if filter.Keyword != "" && !matchesKeyword(post, filter.Keyword) {
			continue
		}
		out = append(out, post)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// CreatePost stores a new draft and selects it as the session's
// current post.
func (p *Provider) CreatePost(ctx context.Context, data blog.CreatePostData, sess *session.Session) (*blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	post := &blog.Post{
		ID:        uuid.NewString(),
		Title:     data.Title,
		Content:   data.Content,
		Status:    blog.StatusDraft,
		Tags:      append([]string(nil), data.Tags...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.posts[post.ID] = post
	p.current[sess.ID()] = post.ID

	clone := *post
	return &clone, nil
}

// UpdatePost applies a partial update to the session's current post.
func (p *Provider) UpdatePost(ctx context.Context, data blog.UpdatePostData, sess *session.Session) (*blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	post, err := p.currentPostLocked(sess)
	if err != nil {
		return nil, err
	}

	if data.Title != nil {
		post.Title = *data.Title
	}
	if data.Content != nil {
		post.Content = *data.Content
	}
	if data.Tags != nil {
		post.Tags = append([]string(nil), data.Tags...)
	}
	if data.FeatureImage != nil {
		img := *data.FeatureImage
		post.FeatureImage = &img
	}
	if data.PublishedAt != nil {
		t := *data.PublishedAt
		post.PublishedAt = &t
	}
	if data.Status != nil {
		post.Status = *data.Status
		if post.Status == blog.StatusPublished && post.PublishedAt == nil {
			t := p.now()
			post.PublishedAt = &t
		}
	}
	post.UpdatedAt = p.now()

	clone := *post
	return &clone, nil
}

// SelectPostByID makes the post the session's current post.
func (p *Provider) SelectPostByID(ctx context.Context, id string, sess *session.Session) (*blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	post, ok := p.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", blog.ErrPostNotFound, id)
	}
	p.current[sess.ID()] = id

	clone := *post
	return &clone, nil
}

// GetCurrentPost returns the session's selection, or nil.
func (p *Provider) GetCurrentPost(ctx context.Context, sess *session.Session) (*blog.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.current[sess.ID()]
	if !ok {
		return nil, nil
	}
	post, ok := p.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *post
	return &clone, nil
}

// ClearCurrentPost drops the session's selection.
func (p *Provider) ClearCurrentPost(ctx context.Context, sess *session.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.current, sess.ID())
	return nil
}

func (p *Provider) currentPostLocked(sess *session.Session) (*blog.Post, error) {
	id, ok := p.current[sess.ID()]
	if !ok {
		return nil, blog.ErrNoPostSelected
	}
	post, ok := p.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", blog.ErrPostNotFound, id)
	}
	return post, nil
}

func (p *Provider) sortedPostsLocked() []blog.Post {
	out := make([]blog.Post, 0, len(p.posts))
	for _, post := range p.posts {
		out = append(out, *post)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func matchesKeyword(post blog.Post, keyword string) bool {
	keyword = strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(post.Title), keyword) ||
		strings.Contains(strings.ToLower(post.Content), keyword)
}
