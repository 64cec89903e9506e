// Package ghost implements a blog backend over a Ghost-Admin-style
// REST API.
package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/session"
)

// Provider talks to one Ghost-style blog. The upstream API has no
// notion of a "current post", so the selection is tracked client-side,
// per session.
type Provider struct {
	baseURL     string
	key         string
	description string
	imageModel  string
	cdnName     string
	http        *http.Client

	mu      sync.Mutex
	current map[string]string // session id -> post id
}

// Options configures a ghost provider.
type Options struct {
	URL                  string
	Key                  string
	Description          string
	ImageGenerationModel string
	CDNName              string
}

// New creates a provider for the given Ghost endpoint.
func New(opts Options) *Provider {
	desc := opts.Description
	if desc == "" {
		desc = "Ghost blog at " + opts.URL
	}
	return &Provider{
		baseURL:     strings.TrimRight(opts.URL, "/"),
		key:         opts.Key,
		description: desc,
		imageModel:  opts.ImageGenerationModel,
		cdnName:     opts.CDNName,
		http:        &http.Client{Timeout: 30 * time.Second},
		current:     make(map[string]string),
	}
}

func (p *Provider) Description() string          { return p.description }
func (p *Provider) ImageGenerationModel() string { return p.imageModel }
func (p *Provider) CDNName() string              { return p.cdnName }

// Attach is a no-op; connectivity problems surface on the first real
// call instead of blocking session creation.
func (p *Provider) Attach(ctx context.Context, sess *session.Session) error {
	return nil
}

// wirePost is the upstream representation of a post.
type wirePost struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	HTML         string     `json:"html,omitempty"`
	Status       string     `json:"status,omitempty"`
	Tags         []wireTag  `json:"tags,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FeatureImage string     `json:"feature_image,omitempty"`
	URL          string     `json:"url,omitempty"`
}

type wireTag struct {
	Name string `json:"name"`
}

type postsEnvelope struct {
	Posts []wirePost `json:"posts"`
}

func toDomain(w wirePost) blog.Post {
	post := blog.Post{
		ID:          w.ID,
		Title:       w.Title,
		Content:     w.HTML,
		Status:      blog.Status(w.Status),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		PublishedAt: w.PublishedAt,
		URL:         w.URL,
	}
	for _, t := range w.Tags {
		post.Tags = append(post.Tags, t.Name)
	}
	if w.FeatureImage != "" {
		post.FeatureImage = &blog.FeatureImage{URL: w.FeatureImage}
	}
	return post
}

func wireTags(tags []string) []wireTag {
	out := make([]wireTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, wireTag{Name: t})
	}
	return out
}

// GetAllPosts lists every post on the blog.
func (p *Provider) GetAllPosts(ctx context.Context, sess *session.Session) ([]blog.Post, error) {
	var env postsEnvelope
	if err := p.do(ctx, http.MethodGet, "/posts/?limit=all&formats=html", nil, &env); err != nil {
		return nil, err
	}
	posts := make([]blog.Post, 0, len(env.Posts))
	for _, w := range env.Posts {
		posts = append(posts, toDomain(w))
	}
	return posts, nil
}

// GetRecentPosts lists posts matching the filter, newest first. The
// upstream handles status and limit; tag and keyword are filtered
// locally.
func (p *Provider) GetRecentPosts(ctx context.Context, filter blog.PostFilter, sess *session.Session) ([]blog.Post, error) {
	q := url.Values{}
	q.Set("order", "created_at desc")
	q.Set("formats", "html")
	if filter.Status != "" {
		q.Set("filter", "status:"+string(filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprint(filter.Limit))
	} else {
		q.Set("limit", "all")
	}

	var env postsEnvelope
	if err := p.do(ctx, http.MethodGet, "/posts/?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}

	var posts []blog.Post
	for _, w := range env.Posts {
		post := toDomain(w)
		if filter.Tag != "" && !hasTag(post.Tags, filter.Tag) {
			continue
		}
		if filter.Keyword != "" && !matchesKeyword(post, filter.Keyword) {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// CreatePost creates a draft upstream and selects it as the session's
// current post.
func (p *Provider) CreatePost(ctx context.Context, data blog.CreatePostData, sess *session.Session) (*blog.Post, error) {
	body := postsEnvelope{Posts: []wirePost{{
		Title:  data.Title,
		HTML:   data.Content,
		Status: string(blog.StatusDraft),
		Tags:   wireTags(data.Tags),
	}}}

	var env postsEnvelope
	if err := p.do(ctx, http.MethodPost, "/posts/?formats=html", body, &env); err != nil {
		return nil, err
	}
	if len(env.Posts) == 0 {
		return nil, fmt.Errorf("create post: empty response from %s", p.baseURL)
	}

	post := toDomain(env.Posts[0])
	p.setCurrent(sess, post.ID)
	return &post, nil
}

// UpdatePost applies a partial update to the session's current post.
func (p *Provider) UpdatePost(ctx context.Context, data blog.UpdatePostData, sess *session.Session) (*blog.Post, error) {
	id, ok := p.getCurrent(sess)
	if !ok {
		return nil, blog.ErrNoPostSelected
	}

	// Ghost requires updated_at for conflict detection; fetch the
	// current version first.
	existing, err := p.fetchPost(ctx, id)
	if err != nil {
		return nil, err
	}

	w := wirePost{UpdatedAt: existing.UpdatedAt}
	w.Title = existing.Title
	if data.Title != nil {
		w.Title = *data.Title
	}
	if data.Content != nil {
		w.HTML = *data.Content
	}
	if data.Tags != nil {
		w.Tags = wireTags(data.Tags)
	}
	if data.Status != nil {
		w.Status = string(*data.Status)
	}
	if data.FeatureImage != nil {
		w.FeatureImage = data.FeatureImage.URL
	}
	if data.PublishedAt != nil {
		w.PublishedAt = data.PublishedAt
	}

	var env postsEnvelope
	if err := p.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(id)+"/?formats=html", postsEnvelope{Posts: []wirePost{w}}, &env); err != nil {
		return nil, err
	}
	if len(env.Posts) == 0 {
		return nil, fmt.Errorf("update post %q: empty response from %s", id, p.baseURL)
	}

	post := toDomain(env.Posts[0])
	return &post, nil
}

// SelectPostByID verifies the post exists upstream and selects it.
func (p *Provider) SelectPostByID(ctx context.Context, id string, sess *session.Session) (*blog.Post, error) {
	w, err := p.fetchPost(ctx, id)
	if err != nil {
		return nil, err
	}
	p.setCurrent(sess, id)
	post := toDomain(*w)
	return &post, nil
}

// GetCurrentPost resolves the session's selection upstream, or nil.
func (p *Provider) GetCurrentPost(ctx context.Context, sess *session.Session) (*blog.Post, error) {
	id, ok := p.getCurrent(sess)
	if !ok {
		return nil, nil
	}
	w, err := p.fetchPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post := toDomain(*w)
	return &post, nil
}

// ClearCurrentPost drops the session's selection.
func (p *Provider) ClearCurrentPost(ctx context.Context, sess *session.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.current, sess.ID())
	return nil
}

func (p *Provider) setCurrent(sess *session.Session, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current[sess.ID()] = id
}

func (p *Provider) getCurrent(sess *session.Session) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.current[sess.ID()]
	return id, ok
}

func (p *Provider) fetchPost(ctx context.Context, id string) (*wirePost, error) {
	var env postsEnvelope
	err := p.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id)+"/?formats=html", nil, &env)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %q", blog.ErrPostNotFound, id)
		}
		return nil, err
	}
	if len(env.Posts) == 0 {
		return nil, fmt.Errorf("%w: %q", blog.ErrPostNotFound, id)
	}
	return &env.Posts[0], nil
}

// statusError preserves the upstream HTTP status for error mapping.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

func (p *Provider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.key != "" {
		req.Header.Set("Authorization", "Ghost "+p.key)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %w", method, path, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
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
