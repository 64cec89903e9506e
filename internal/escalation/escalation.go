// Package escalation routes publish-review requests to a human
// reviewer over an abstract two-way channel. The publish workflow only
// depends on the Service and Channel contracts; the concrete transport
// (websocket, chat, anything line-oriented) is an implementation
// detail.
package escalation

import (
	"context"
	"errors"
)

// ErrNoReviewer is returned when no reviewer is reachable for the
// requested target.
var ErrNoReviewer = errors.New("no reviewer available")

// ErrChannelClosed is returned by Receive after the channel or its
// underlying transport has been closed.
var ErrChannelClosed = errors.New("escalation channel closed")

// Channel is a two-way handle to a human reviewer. Receive blocks
// until the next inbound message, the context is cancelled, or the
// channel is closed.
type Channel interface {
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

// Service opens channels to human reviewers. The target identifies a
// reviewer endpoint (a named review queue); the session id is included
// so reviewers can see which conversation asked.
type Service interface {
	InitiateContact(ctx context.Context, target, sessionID string) (Channel, error)
}
