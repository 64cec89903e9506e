package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/provider/memory"
	"github.com/inkroute/inkroute/internal/session"
)

func newTestRegistry(t *testing.T) (*Registry, *session.Session) {
	t.Helper()
	providers := blog.NewRegistry()
	if err := providers.Register("main", memory.New(memory.Options{})); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	RegisterBlogFunctions(r, blog.NewService(providers, nil))
	return r, session.New("script", session.State{ActiveProvider: "main"})
}

func TestNamesSorted(t *testing.T) {
	r, _ := newTestRegistry(t)
	names := r.Names()
	want := []string{"createPost", "getAllPosts", "getCurrentPost", "updatePost"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCallUnknownFunction(t *testing.T) {
	r, sess := newTestRegistry(t)
	_, err := r.Call(context.Background(), "deletePost", sess)
	if !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("error = %v, want ErrFunctionNotFound", err)
	}
}

func TestCallArgumentCountMismatch(t *testing.T) {
	r, sess := newTestRegistry(t)
	_, err := r.Call(context.Background(), "createPost", sess, "only a title")
	if !errors.Is(err, ErrArgumentCount) {
		t.Fatalf("error = %v, want ErrArgumentCount", err)
	}
	if !strings.Contains(err.Error(), "expects 2 arguments") {
		t.Errorf("error = %v", err)
	}
}

func TestCreateUpdateGetFlow(t *testing.T) {
	r, sess := newTestRegistry(t)
	ctx := context.Background()

	out, err := r.Call(ctx, "createPost", sess, "First", "<p>body</p>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Created post: ") {
		t.Errorf("createPost output = %q", out)
	}

	out, err = r.Call(ctx, "updatePost", sess, "Renamed", "<p>new body</p>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Updated post: ") {
		t.Errorf("updatePost output = %q", out)
	}

	out, err = r.Call(ctx, "getCurrentPost", sess)
	if err != nil {
		t.Fatal(err)
	}
	var post blog.Post
	if err := json.Unmarshal([]byte(out), &post); err != nil {
		t.Fatalf("getCurrentPost output is not a post: %q", out)
	}
	if post.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", post.Title)
	}

	out, err = r.Call(ctx, "getAllPosts", sess)
	if err != nil {
		t.Fatal(err)
	}
	var posts []blog.Post
	if err := json.Unmarshal([]byte(out), &posts); err != nil {
		t.Fatalf("getAllPosts output is not a post list: %q", out)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

func TestGetCurrentPostWithoutSelection(t *testing.T) {
	r, _ := newTestRegistry(t)
	sess := session.New("fresh", session.State{ActiveProvider: "main"})

	out, err := r.Call(context.Background(), "getCurrentPost", sess)
	if err != nil {
		t.Fatal(err)
	}
	if out != "No post selected" {
		t.Errorf("output = %q", out)
	}
}
