// Package scripting exposes blog operations as named native functions
// for a host scripting engine. The engine itself is external; this
// package only provides the function table.
package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/session"
)

// ErrFunctionNotFound is returned by Call for an unregistered name.
var ErrFunctionNotFound = errors.New("scripting function not found")

// ErrArgumentCount is returned by Call when the argument list does not
// match the function's parameters.
var ErrArgumentCount = errors.New("argument count mismatch")

// Function is one scripting-callable operation.
type Function struct {
	Name   string
	Params []string
	Call   func(ctx context.Context, sess *session.Session, args ...string) (string, error)
}

// Registry holds the registered scripting functions by name.
type Registry struct {
	functions map[string]Function
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]Function)}
}

// Register adds a function; later registrations under the same name
// replace earlier ones, matching host scripting semantics.
func (r *Registry) Register(fn Function) {
	r.functions[fn.Name] = fn
}

// Call invokes a registered function by name.
func (r *Registry) Call(ctx context.Context, name string, sess *session.Session, args ...string) (string, error) {
	fn, ok := r.functions[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	if len(args) != len(fn.Params) {
		return "", fmt.Errorf("%w: %q expects %d arguments (%v), got %d", ErrArgumentCount, name, len(fn.Params), fn.Params, len(args))
	}
	return fn.Call(ctx, sess, args...)
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBlogFunctions installs the blog function table:
// createPost(title, content), updatePost(title, content),
// getCurrentPost(), getAllPosts().
func RegisterBlogFunctions(r *Registry, svc *blog.Service) {
	r.Register(Function{
		Name:   "createPost",
		Params: []string{"title", "content"},
		Call: func(ctx context.Context, sess *session.Session, args ...string) (string, error) {
			post, err := svc.CreatePost(ctx, blog.CreatePostData{Title: args[0], Content: args[1]}, sess)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Created post: %s", post.ID), nil
		},
	})

	r.Register(Function{
		Name:   "updatePost",
		Params: []string{"title", "content"},
		Call: func(ctx context.Context, sess *session.Session, args ...string) (string, error) {
			post, err := svc.UpdatePost(ctx, blog.UpdatePostData{Title: &args[0], Content: &args[1]}, sess)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Updated post: %s", post.ID), nil
		},
	})

	r.Register(Function{
		Name: "getCurrentPost",
		Call: func(ctx context.Context, sess *session.Session, args ...string) (string, error) {
			post, err := svc.GetCurrentPost(ctx, sess)
			if err != nil {
				return "", err
			}
			if post == nil {
				return "No post selected", nil
			}
			data, err := json.Marshal(post)
			if err != nil {
				return "", fmt.Errorf("encode post: %w", err)
			}
			return string(data), nil
		},
	})

	r.Register(Function{
		Name: "getAllPosts",
		Call: func(ctx context.Context, sess *session.Session, args ...string) (string, error) {
			posts, err := svc.GetAllPosts(ctx, sess)
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(posts)
			if err != nil {
				return "", fmt.Errorf("encode posts: %w", err)
			}
			return string(data), nil
		},
	})
}
