// Package tools defines the blog tool surface exposed to a
// conversational agent: JSON-schema-described operations that delegate
// to the blog service.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/session"
)

// Definition describes one agent-callable tool.
type Definition struct {
	Name        string
	DisplayName string
	Description string
	// InputSchema is a JSON Schema document for the tool arguments.
	InputSchema json.RawMessage
	// Execute runs the tool; args is the raw JSON argument object.
	Execute func(ctx context.Context, args json.RawMessage, sess *session.Session) (string, error)
}

// Deps are the services the tool table delegates to.
type Deps struct {
	Blog   *blog.Service
	Images *blog.ImageService
}

// All returns the full blog tool table.
func All(deps Deps) []Definition {
	return []Definition{
		createPost(deps),
		updatePost(deps),
		getRecentPosts(deps),
		getAllPosts(deps),
		getCurrentPost(deps),
		selectPost(deps),
		generateImageForPost(deps),
	}
}

func createPost(deps Deps) Definition {
	type args struct {
		Title             string   `json:"title"`
		ContentInMarkdown string   `json:"contentInMarkdown"`
		Tags              []string `json:"tags,omitempty"`
	}
	return Definition{
		Name:        "blog_createPost",
		DisplayName: "Blog/createPost",
		Description: "Create a new blog post",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Title of the blog post"},
				"contentInMarkdown": {"type": "string", "description": "The content of the post in Markdown format. The title of the post goes in the title field, NOT inside the content"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Tags for the post"}
			},
			"required": ["title", "contentInMarkdown"]
		}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			content, err := blog.RenderMarkdown(a.ContentInMarkdown)
			if err != nil {
				return "", err
			}
			post, err := deps.Blog.CreatePost(ctx, blog.CreatePostData{Title: a.Title, Content: content, Tags: a.Tags}, sess)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Post created with ID: %s", post.ID), nil
		},
	}
}

func updatePost(deps Deps) Definition {
	type args struct {
		Title             *string      `json:"title,omitempty"`
		ContentInMarkdown *string      `json:"contentInMarkdown,omitempty"`
		Tags              []string     `json:"tags,omitempty"`
		Status            *blog.Status `json:"status,omitempty"`
	}
	return Definition{
		Name:        "blog_updatePost",
		DisplayName: "Blog/updatePost",
		Description: "Update the currently selected blog post",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"contentInMarkdown": {"type": "string"},
				"tags": {"type": "array", "items": {"type": "string"}},
				"status": {"type": "string", "enum": ["draft", "published", "scheduled", "pending", "private"]}
			}
		}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			update := blog.UpdatePostData{Title: a.Title, Tags: a.Tags, Status: a.Status}
			if a.ContentInMarkdown != nil {
				content, err := blog.RenderMarkdown(*a.ContentInMarkdown)
				if err != nil {
					return "", err
				}
				update.Content = &content
			}
			post, err := deps.Blog.UpdatePost(ctx, update, sess)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Post updated: %s", post.ID), nil
		},
	}
}

func getRecentPosts(deps Deps) Definition {
	type args struct {
		Status  string `json:"status,omitempty"`
		Keyword string `json:"keyword,omitempty"`
		Limit   int    `json:"limit,omitempty"`
	}
	return Definition{
		Name:        "blog_getRecentPosts",
		DisplayName: "Blog/getRecentPosts",
		Description: "Retrieves the most recent posts, optionally filtered by status and keyword",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status": {"type": "string", "enum": ["draft", "published", "all"]},
				"keyword": {"type": "string", "description": "Keyword to filter by"},
				"limit": {"type": "integer", "minimum": 1}
			}
		}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			if a.Limit <= 0 {
				a.Limit = 50
			}
			filter := blog.PostFilter{Keyword: a.Keyword, Limit: a.Limit}
			if a.Status != "" && a.Status != "all" {
				filter.Status = blog.Status(a.Status)
			}
			posts, err := deps.Blog.GetRecentPosts(ctx, filter, sess)
			if err != nil {
				return "", err
			}

			rows := make([][]string, 0, len(posts))
			for _, post := range posts {
				rows = append(rows, []string{post.ID, post.Title, post.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), string(post.Status)})
			}
			return fmt.Sprintf("Here are the %d most recent posts\n\n%s", len(posts),
				markdownTable([]string{"ID", "Title", "Created At", "Status"}, rows)), nil
		},
	}
}

func getAllPosts(deps Deps) Definition {
	return Definition{
		Name:        "blog_getAllPosts",
		DisplayName: "Blog/getAllPosts",
		Description: "Retrieves all posts from the active blog",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			posts, err := deps.Blog.GetAllPosts(ctx, sess)
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(posts)
			if err != nil {
				return "", fmt.Errorf("encode posts: %w", err)
			}
			return string(data), nil
		},
	}
}

func getCurrentPost(deps Deps) Definition {
	return Definition{
		Name:        "blog_getCurrentPost",
		DisplayName: "Blog/getCurrentPost",
		Description: "Returns the currently selected blog post",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			post, err := deps.Blog.GetCurrentPost(ctx, sess)
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
	}
}

func selectPost(deps Deps) Definition {
	type args struct {
		ID string `json:"id"`
	}
	return Definition{
		Name:        "blog_selectPost",
		DisplayName: "Blog/selectPost",
		Description: "Select a blog post by id to work with",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"id": {"type": "string", "description": "ID of the post to select"}},
			"required": ["id"]
		}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			post, err := deps.Blog.SelectPostByID(ctx, a.ID, sess)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Selected post: %q", post.Title), nil
		},
	}
}

func generateImageForPost(deps Deps) Definition {
	type args struct {
		Prompt      string `json:"prompt"`
		AspectRatio string `json:"aspectRatio,omitempty"`
	}
	return Definition{
		Name:        "blog_generateImageForPost",
		DisplayName: "Blog/generateImageForPost",
		Description: "Generate an AI image for the currently selected blog post",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {"type": "string", "description": "Description of the image to generate"},
				"aspectRatio": {"type": "string", "enum": ["square", "tall", "wide"], "default": "square"}
			},
			"required": ["prompt"]
		}`),
		Execute: func(ctx context.Context, raw json.RawMessage, sess *session.Session) (string, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			result, err := deps.Images.GenerateForCurrentPost(ctx, a.Prompt, a.AspectRatio, sess)
			if err != nil {
				return "", err
			}
			return result.Message + " " + result.ImageURL, nil
		},
	}
}

func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
