package blog_test

import (
	"context"
	"testing"
	"time"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/escalation"
	"github.com/inkroute/inkroute/internal/provider/memory"
	"github.com/inkroute/inkroute/internal/session"
)

// fakeChannel is a scripted escalation channel: Receive returns the
// queued replies in order, Send records everything the workflow says.
type fakeChannel struct {
	replies []string
	sent    []string
	closed  bool
}

func (c *fakeChannel) Send(ctx context.Context, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChannel) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.replies) == 0 {
		return "", escalation.ErrChannelClosed
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeEscalation struct {
	channel    *fakeChannel
	lastTarget string
}

func (f *fakeEscalation) InitiateContact(ctx context.Context, target, sessionID string) (escalation.Channel, error) {
	f.lastTarget = target
	return f.channel, nil
}

func publishFixture(t *testing.T, esc escalation.Service, state session.State) (*blog.Service, *session.Session, *blog.Post) {
	t.Helper()
	registry := blog.NewRegistry()
	if err := registry.Register("main", memory.New(memory.Options{})); err != nil {
		t.Fatal(err)
	}
	svc := blog.NewService(registry, esc)

	state.ActiveProvider = "main"
	sess := session.New("s1", state)

	post, err := svc.CreatePost(context.Background(), blog.CreatePostData{
		Title:   "Quarterly Report",
		Content: "<p>Numbers look Confidential enough.</p>",
	}, sess)
	if err != nil {
		t.Fatal(err)
	}
	return svc, sess, post
}

func currentStatus(t *testing.T, svc *blog.Service, sess *session.Session) blog.Status {
	t.Helper()
	post, err := svc.GetCurrentPost(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if post == nil {
		t.Fatal("no current post")
	}
	return post.Status
}

func TestPublishNoSelection(t *testing.T) {
	registry := blog.NewRegistry()
	if err := registry.Register("main", memory.New(memory.Options{})); err != nil {
		t.Fatal(err)
	}
	svc := blog.NewService(registry, nil)
	sess := session.New("s1", session.State{ActiveProvider: "main"})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if result.Published {
		t.Error("published with no post selected")
	}
	if result.Message == "" {
		t.Error("expected an informational message")
	}
}

func TestPublishDirect(t *testing.T) {
	svc, sess, _ := publishFixture(t, nil, session.State{})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if !result.Published {
		t.Fatalf("expected publish, got %q", result.Message)
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusPublished {
		t.Errorf("status = %q, want published", got)
	}
}

func TestPublishAlreadyPublishedIsNoOp(t *testing.T) {
	svc, sess, _ := publishFixture(t, nil, session.State{})
	ctx := context.Background()

	if _, err := svc.PublishPost(ctx, sess); err != nil {
		t.Fatal(err)
	}

	result, err := svc.PublishPost(ctx, sess)
	if err != nil {
		t.Fatalf("second PublishPost returned error: %v", err)
	}
	if result.Published {
		t.Error("second publish must not re-apply")
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusPublished {
		t.Errorf("status = %q, want published", got)
	}
}

func TestPublishReviewWithoutTargetStops(t *testing.T) {
	svc, sess, _ := publishFixture(t, nil, session.State{
		ReviewPatterns: []string{"confidential"},
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if result.Published {
		t.Error("post matching a review pattern was published without review")
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusDraft {
		t.Errorf("status = %q, want draft", got)
	}
}

func TestPublishReviewApprove(t *testing.T) {
	channel := &fakeChannel{replies: []string{"  Approve  "}}
	esc := &fakeEscalation{channel: channel}
	svc, sess, _ := publishFixture(t, esc, session.State{
		ReviewPatterns:         []string{"confidential"},
		ReviewEscalationTarget: "ops",
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if !result.Published {
		t.Fatalf("approved review did not publish: %q", result.Message)
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusPublished {
		t.Errorf("status = %q, want published", got)
	}
	if !channel.closed {
		t.Error("channel not closed after approval")
	}
	if esc.lastTarget != "ops" {
		t.Errorf("escalated to %q, want ops", esc.lastTarget)
	}
	if len(channel.sent) < 2 {
		t.Fatalf("expected request and confirmation messages, got %v", channel.sent)
	}
}

func TestPublishReviewReject(t *testing.T) {
	channel := &fakeChannel{replies: []string{"reject"}}
	svc, sess, _ := publishFixture(t, &fakeEscalation{channel: channel}, session.State{
		ReviewPatterns:         []string{"confidential"},
		ReviewEscalationTarget: "ops",
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if result.Published {
		t.Error("rejected review still published")
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusDraft {
		t.Errorf("status = %q, want draft", got)
	}
	if !channel.closed {
		t.Error("channel not closed after rejection")
	}
}

func TestPublishReviewRepromptsOnUnrecognizedReply(t *testing.T) {
	channel := &fakeChannel{replies: []string{"maybe", "what?", "approve"}}
	svc, sess, _ := publishFixture(t, &fakeEscalation{channel: channel}, session.State{
		ReviewPatterns:         []string{"confidential"},
		ReviewEscalationTarget: "ops",
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if !result.Published {
		t.Fatalf("eventual approval did not publish: %q", result.Message)
	}
	// One request, two re-prompts, one confirmation.
	if len(channel.sent) != 4 {
		t.Errorf("sent %d messages, want 4: %v", len(channel.sent), channel.sent)
	}
}

func TestPublishReviewPatternIsCaseInsensitive(t *testing.T) {
	// Post content says "Confidential"; the configured pattern is
	// lowercase and must still match.
	svc, sess, _ := publishFixture(t, nil, session.State{
		ReviewPatterns: []string{"confidential"},
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if result.Published {
		t.Error("case-insensitive pattern did not gate the publish")
	}
}

func TestPublishNonMatchingPatternsFallThrough(t *testing.T) {
	svc, sess, _ := publishFixture(t, nil, session.State{
		ReviewPatterns: []string{"totally-unrelated", "also-no-match"},
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Published {
		t.Errorf("non-matching patterns blocked publish: %q", result.Message)
	}
}

func TestPublishReviewTimeoutAutoRejects(t *testing.T) {
	// A channel that never replies: Receive blocks on ctx.
	channel := &blockingChannel{}
	svc, sess, _ := publishFixture(t, &fakeEscalation2{channel: channel}, session.State{
		ReviewPatterns:         []string{"confidential"},
		ReviewEscalationTarget: "ops",
		ReviewTimeout:          20 * time.Millisecond,
	})

	result, err := svc.PublishPost(context.Background(), sess)
	if err != nil {
		t.Fatalf("PublishPost returned error: %v", err)
	}
	if result.Published {
		t.Error("timed-out review still published")
	}
	if got := currentStatus(t, svc, sess); got != blog.StatusDraft {
		t.Errorf("status = %q, want draft", got)
	}
}

type blockingChannel struct {
	sent []string
}

func (c *blockingChannel) Send(ctx context.Context, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func (c *blockingChannel) Receive(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (c *blockingChannel) Close() error { return nil }

type fakeEscalation2 struct {
	channel escalation.Channel
}

func (f *fakeEscalation2) InitiateContact(ctx context.Context, target, sessionID string) (escalation.Channel, error) {
	return f.channel, nil
}
