package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/inkroute/inkroute/internal/escalation"
	"github.com/inkroute/inkroute/internal/session"
)

// Service routes post operations to the session's active provider and
// owns the publish workflow. Provider instances are shared across
// sessions; all per-session state lives in the session itself or in
// the provider's session-scoped bookkeeping.
type Service struct {
	registry   *Registry
	escalation escalation.Service
}

// NewService creates the blog service. The escalation service may be
// nil; review-gated publishes then stop at "requires manual review".
func NewService(registry *Registry, esc escalation.Service) *Service {
	return &Service{registry: registry, escalation: esc}
}

// Registry exposes the provider registry for adapters that need the
// provider list.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Attach prepares every registered provider for the session.
func (s *Service) Attach(ctx context.Context, sess *session.Session) error {
	for _, name := range s.registry.Names() {
		if err := s.registry.Get(name).Attach(ctx, sess); err != nil {
			return fmt.Errorf("attach provider %q: %w", name, err)
		}
	}
	return nil
}

// RequireActiveProvider resolves the session's active provider. It
// fails fast when no provider is selected or the selected name is not
// registered.
func (s *Service) RequireActiveProvider(sess *session.Session) (Provider, error) {
	name := sess.ActiveProvider()
	if name == "" {
		return nil, fmt.Errorf("%w: use provider select first", ErrNoActiveProvider)
	}
	p := s.registry.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return p, nil
}

// SetActiveProvider validates the name against the registry before
// mutating session state. The error lists the valid names so a
// conversational caller can correct itself.
func (s *Service) SetActiveProvider(name string, sess *session.Session) error {
	if s.registry.Get(name) == nil {
		return fmt.Errorf("%w: %q (available: %s)", ErrProviderNotFound, name, s.registry.namesJoined())
	}
	sess.SetActiveProvider(name)
	return nil
}

// AvailableProviders returns all registered provider names in
// registration order.
func (s *Service) AvailableProviders() []string {
	return s.registry.Names()
}

// ContextSummary renders the provider list for injection into an
// agent's context.
func (s *Service) ContextSummary() string {
	names := s.registry.Names()
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The following blogs are available for use with the blog tools:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, s.registry.Get(name).Description())
	}
	return b.String()
}

// GetAllPosts returns every post on the active provider.
func (s *Service) GetAllPosts(ctx context.Context, sess *session.Session) ([]Post, error) {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	return p.GetAllPosts(ctx, sess)
}

// GetRecentPosts returns the most recent posts matching the filter.
func (s *Service) GetRecentPosts(ctx context.Context, filter PostFilter, sess *session.Session) ([]Post, error) {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	return p.GetRecentPosts(ctx, filter, sess)
}

// CreatePost validates the data and creates the post on the active
// provider. The provider assigns id, timestamps, and the draft status.
func (s *Service) CreatePost(ctx context.Context, data CreatePostData, sess *session.Session) (*Post, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	return p.CreatePost(ctx, data, sess)
}

// UpdatePost applies a partial update to the session's current post.
func (s *Service) UpdatePost(ctx context.Context, data UpdatePostData, sess *session.Session) (*Post, error) {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	return p.UpdatePost(ctx, data, sess)
}

// SelectPostByID makes the post the session's current post on the
// active provider.
func (s *Service) SelectPostByID(ctx context.Context, id string, sess *session.Session) (*Post, error) {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	return p.SelectPostByID(ctx, id, sess)
}

// GetCurrentPost returns the session's current post, or nil. Unlike
// the other operations this is a read-only lookup: no active provider
// or no selection means nil, not an error.
func (s *Service) GetCurrentPost(ctx context.Context, sess *session.Session) (*Post, error) {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		if errors.Is(err, ErrNoActiveProvider) || errors.Is(err, ErrProviderNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p.GetCurrentPost(ctx, sess)
}

// ClearCurrentPost drops the session's post selection on the active
// provider.
func (s *Service) ClearCurrentPost(ctx context.Context, sess *session.Session) error {
	p, err := s.RequireActiveProvider(sess)
	if err != nil {
		return err
	}
	return p.ClearCurrentPost(ctx, sess)
}

// PublishResult reports the outcome of a publish attempt. A nil error
// with Published=false means the workflow stopped for an informational
// reason (no selection, already published, review pending/rejected).
type PublishResult struct {
	Published bool
	Message   string
}

// PublishPost runs the publish workflow for the session's current
// post:
//
//  1. no selection -> informational stop
//  2. already published -> stop, never re-applied
//  3. review patterns match the content -> escalate to a human
//     reviewer and block until approve/reject (or the configured
//     timeout expires, which auto-rejects)
//  4. otherwise publish directly
func (s *Service) PublishPost(ctx context.Context, sess *session.Session) (*PublishResult, error) {
	provider, err := s.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}

	post, err := provider.GetCurrentPost(ctx, sess)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return &PublishResult{Message: "No post is currently selected."}, nil
	}
	if post.Status == StatusPublished {
		return &PublishResult{Message: fmt.Sprintf("Post %q is already published.", post.Title)}, nil
	}

	patterns, target, timeout := sess.ReviewConfig()
	if post.Content != "" {
		if pattern := matchReviewPattern(patterns, post.Content); pattern != "" {
			if s.escalation == nil || target == "" {
				return &PublishResult{
					Message: fmt.Sprintf("Post %q matches review pattern %q and requires manual review before publishing.", post.Title, pattern),
				}, nil
			}
			return s.escalateForReview(ctx, provider, sess, post, pattern, target, timeout)
		}
	}

	if err := s.publish(ctx, provider, sess); err != nil {
		return nil, err
	}
	return &PublishResult{
		Published: true,
		Message:   fmt.Sprintf("Post %q has been published.", post.Title),
	}, nil
}

func (s *Service) publish(ctx context.Context, provider Provider, sess *session.Session) error {
	status := StatusPublished
	if _, err := provider.UpdatePost(ctx, UpdatePostData{Status: &status}, sess); err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	return nil
}

// matchReviewPattern tests each pattern case-insensitively against the
// content in list order and returns the first match. Invalid patterns
// are skipped with a warning rather than blocking every publish.
func matchReviewPattern(patterns []string, content string) string {
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			slog.Warn("Skipping invalid review pattern", "pattern", pattern, "error", err)
			continue
		}
		if re.MatchString(content) {
			return pattern
		}
	}
	return ""
}

// escalateForReview opens a channel to the configured reviewer and
// blocks until an approve/reject decision arrives. Unrecognized
// replies re-prompt and keep waiting; a timeout (when configured)
// auto-rejects.
func (s *Service) escalateForReview(ctx context.Context, provider Provider, sess *session.Session, post *Post, pattern, target string, timeout time.Duration) (*PublishResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	channel, err := s.escalation.InitiateContact(ctx, target, sess.ID())
	if err != nil {
		return nil, fmt.Errorf("escalate publish review: %w", err)
	}
	defer func() {
		if closeErr := channel.Close(); closeErr != nil {
			slog.Debug("Failed to close escalation channel", "target", target, "error", closeErr)
		}
	}()

	request := fmt.Sprintf(
		"Publish review requested for post %q.\nMatched review pattern: %q.\nURL: %s\nReply \"approve\" to publish or \"reject\" to keep it unpublished.",
		post.Title, pattern, postURL(post))
	if err := channel.Send(ctx, request); err != nil {
		return nil, fmt.Errorf("escalate publish review: %w", err)
	}

	slog.Info("Publish escalated for review", "session_id", sess.ID(), "post_id", post.ID, "pattern", pattern, "target", target)

	for {
		reply, err := channel.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				_ = channel.Send(context.WithoutCancel(ctx), fmt.Sprintf("Review of post %q expired without a decision. The post was NOT published.", post.Title))
				return &PublishResult{
					Message: fmt.Sprintf("Review of post %q timed out; the post was not published.", post.Title),
				}, nil
			}
			return nil, fmt.Errorf("await review decision: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(reply)) {
		case "approve":
			if err := s.publish(ctx, provider, sess); err != nil {
				return nil, err
			}
			_ = channel.Send(ctx, fmt.Sprintf("Post %q has been published.", post.Title))
			return &PublishResult{
				Published: true,
				Message:   fmt.Sprintf("Post %q was approved and has been published.", post.Title),
			}, nil
		case "reject":
			_ = channel.Send(ctx, fmt.Sprintf("Post %q was rejected and will not be published.", post.Title))
			return &PublishResult{
				Message: fmt.Sprintf("Post %q was rejected by the reviewer and was not published.", post.Title),
			}, nil
		default:
			if err := channel.Send(ctx, `Please reply "approve" or "reject".`); err != nil {
				return nil, fmt.Errorf("await review decision: %w", err)
			}
		}
	}
}

func postURL(post *Post) string {
	if post.URL != "" {
		return post.URL
	}
	return "(no URL yet)"
}
