package blog

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkroute/inkroute/internal/session"
)

// Provider is the contract every concrete blog backend implements.
// The session is passed through on every call so backends can scope
// their "current post" per session; implementations must not share a
// single current-post slot across sessions.
type Provider interface {
	// Attach prepares the provider for a session (connection checks,
	// per-session bookkeeping). Called once when a session first uses
	// the service.
	Attach(ctx context.Context, sess *session.Session) error

	GetAllPosts(ctx context.Context, sess *session.Session) ([]Post, error)
	GetRecentPosts(ctx context.Context, filter PostFilter, sess *session.Session) ([]Post, error)
	CreatePost(ctx context.Context, data CreatePostData, sess *session.Session) (*Post, error)
	UpdatePost(ctx context.Context, data UpdatePostData, sess *session.Session) (*Post, error)
	SelectPostByID(ctx context.Context, id string, sess *session.Session) (*Post, error)

	// GetCurrentPost returns the session's selected post, or nil when
	// nothing is selected. It never fails for lack of a selection.
	GetCurrentPost(ctx context.Context, sess *session.Session) (*Post, error)
	ClearCurrentPost(ctx context.Context, sess *session.Session) error

	// Read-only metadata.
	Description() string
	ImageGenerationModel() string
	CDNName() string
}

// Registry is an ordered name->provider mapping. It is populated once
// during startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under a unique name. Duplicate names error
// rather than silently shadowing the earlier registration.
func (r *Registry) Register(name string, p Provider) error {
	if name == "" {
		return fmt.Errorf("register provider: name is empty")
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("register provider: %q already registered", name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns the provider registered under name, or nil.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) namesJoined() string {
	return strings.Join(r.order, ", ")
}
