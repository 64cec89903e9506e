package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// Hub is a websocket-backed escalation service. Reviewers connect to
// /ws/review/{target}; each target carries at most one reviewer
// connection, and at most one publish workflow talks to a reviewer at
// a time.
type Hub struct {
	allowedOrigin string

	mu        sync.Mutex
	reviewers map[string]*reviewerConn
}

// NewHub creates a reviewer hub. allowedOrigin restricts websocket
// origins; empty allows any (development).
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		allowedOrigin: allowedOrigin,
		reviewers:     make(map[string]*reviewerConn),
	}
}

// reviewerConn wraps a single reviewer websocket. A reader goroutine
// pumps inbound text into inbox so Receive can select against context
// cancellation.
type reviewerConn struct {
	target string
	ws     *websocket.Conn
	inbox  chan string
	done   chan struct{}

	mu     sync.Mutex
	busy   bool
	closed bool
}

// wsEnvelope is the wire format for reviewer-bound messages.
type wsEnvelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

// ServeHTTP upgrades a reviewer connection and pumps messages until it
// drops. The URL parameter "target" names the review queue.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if target == "" {
		http.Error(w, "missing review target", http.StatusBadRequest)
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.allowedOrigin != "" {
		opts.OriginPatterns = []string{h.allowedOrigin}
	} else {
		opts.OriginPatterns = []string{"*"}
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept reviewer websocket", "target", target, "error", err)
		return
	}

	conn := &reviewerConn{
		target: target,
		ws:     ws,
		inbox:  make(chan string, 16),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if _, exists := h.reviewers[target]; exists {
		h.mu.Unlock()
		_ = ws.Close(websocket.StatusPolicyViolation, "target already has a reviewer")
		return
	}
	h.reviewers[target] = conn
	h.mu.Unlock()

	slog.Info("Reviewer connected", "target", target)
	defer func() {
		h.mu.Lock()
		delete(h.reviewers, target)
		h.mu.Unlock()
		conn.shutdown()
		slog.Info("Reviewer disconnected", "target", target)
	}()

	// Read pump. Runs on the request goroutine; returns when the
	// reviewer disconnects.
	for {
		msgType, data, err := ws.Read(r.Context())
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		select {
		case conn.inbox <- string(data):
		case <-conn.done:
			return
		}
	}
}

// InitiateContact claims the reviewer connected for target and returns
// a channel bound to it. Fails with ErrNoReviewer when nobody is
// connected, or an error when the reviewer is already handling another
// review.
func (h *Hub) InitiateContact(ctx context.Context, target, sessionID string) (Channel, error) {
	h.mu.Lock()
	conn := h.reviewers[target]
	h.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("%w for target %q", ErrNoReviewer, target)
	}
	if !conn.claim() {
		return nil, fmt.Errorf("reviewer for target %q is busy", target)
	}
	return &hubChannel{conn: conn, sessionID: sessionID}, nil
}

func (c *reviewerConn) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.closed {
		return false
	}
	c.busy = true
	return true
}

func (c *reviewerConn) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *reviewerConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// hubChannel is the per-review view of a reviewer connection. Closing
// it releases the reviewer for the next review without closing the
// underlying websocket.
type hubChannel struct {
	conn      *reviewerConn
	sessionID string

	mu     sync.Mutex
	closed bool
}

func (c *hubChannel) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.mu.Unlock()

	data, err := json.Marshal(wsEnvelope{Type: "review", SessionID: c.sessionID, Text: text})
	if err != nil {
		return fmt.Errorf("encode review message: %w", err)
	}
	if err := c.conn.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send review message: %w", err)
	}
	return nil
}

func (c *hubChannel) Receive(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrChannelClosed
	}
	c.mu.Unlock()

	select {
	case msg := <-c.conn.inbox:
		return msg, nil
	case <-c.conn.done:
		return "", ErrChannelClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *hubChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// Discard replies that arrived for this review but were never
	// consumed. A late duplicate "approve" must not be delivered to the
	// next review's Receive.
	for {
		select {
		case <-c.conn.inbox:
		default:
			c.conn.release()
			return nil
		}
	}
}
