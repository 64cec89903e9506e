package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Description is the one-line help for the /blog command.
const Description = "/blog [action] [subaction] - Manage blog posts"

// Help lists the available actions for the /blog command.
const Help = `Blog command usage:
  /blog provider set <name>  - Set the active blog provider by name
  /blog provider select      - Select a provider (auto-selects when only one exists)
  /blog post select <id>     - Select an existing post; without an id, lists posts
  /blog post get             - Show the current post's content
  /blog post info            - Show title, status, dates, word count, tags, URL
  /blog post clear           - Clear the current post selection
  /blog post publish         - Publish the current post (may require review)
  /blog test                 - Create a test post and upload a test image`

// Blog is the /blog command tree.
func Blog() Func {
	return Router(map[string]Func{
		"provider": Router(map[string]Func{
			"set":    providerSet,
			"select": providerSelect,
		}),
		"post": Router(map[string]Func{
			"select":  postSelect,
			"get":     postGet,
			"info":    postInfo,
			"clear":   postClear,
			"publish": postPublish,
		}),
		"test": testConnection,
		"help": func(ctx context.Context, remainder string, env *Env) error {
			env.Info(Help)
			return nil
		},
	})
}

func providerSet(ctx context.Context, remainder string, env *Env) error {
	name, _ := splitWord(remainder)
	if name == "" {
		env.Info("Usage: /blog provider set <name>")
		return nil
	}
	if err := env.Blog.SetActiveProvider(name, env.Session); err != nil {
		env.Info(err.Error())
		return nil
	}
	env.Sessions.Save(ctx, env.Session)
	env.Info(fmt.Sprintf("Active provider set to: %s", name))
	return nil
}

func providerSelect(ctx context.Context, remainder string, env *Env) error {
	available := env.Blog.AvailableProviders()

	switch len(available) {
	case 0:
		env.Info("No blog providers are registered.")
	case 1:
		if err := env.Blog.SetActiveProvider(available[0], env.Session); err != nil {
			return err
		}
		env.Sessions.Save(ctx, env.Session)
		env.Info(fmt.Sprintf("Active provider set to: %s", available[0]))
	default:
		current := env.Session.ActiveProvider()
		env.Info("Available providers:")
		for _, name := range available {
			marker := ""
			if name == current {
				marker = " (current)"
			}
			env.Info(fmt.Sprintf("  %s%s", name, marker))
		}
		env.Info("Use /blog provider set <name> to choose one.")
	}
	return nil
}

func postSelect(ctx context.Context, remainder string, env *Env) error {
	id, _ := splitWord(remainder)
	if id == "" {
		posts, err := env.Blog.GetAllPosts(ctx, env.Session)
		if err != nil {
			env.Info(err.Error())
			return nil
		}
		if len(posts) == 0 {
			env.Info("No posts found.")
			return nil
		}
		env.Info("Available posts:")
		for _, post := range posts {
			env.Info(fmt.Sprintf("  %s  %s (%s, updated %s)", post.ID, post.Title, post.Status, post.UpdatedAt.Format("2006-01-02")))
		}
		env.Info("Use /blog post select <id> to choose one.")
		return nil
	}

	post, err := env.Blog.SelectPostByID(ctx, id, env.Session)
	if err != nil {
		env.Info(err.Error())
		return nil
	}
	env.Info(fmt.Sprintf("Selected post: %q", post.Title))
	return nil
}

func postGet(ctx context.Context, remainder string, env *Env) error {
	post, err := env.Blog.GetCurrentPost(ctx, env.Session)
	if err != nil {
		env.Info(err.Error())
		return nil
	}
	if post == nil {
		env.Info("No post is currently selected. Use /blog post select to choose one.")
		return nil
	}
	env.Info(fmt.Sprintf("Title: %s", post.Title))
	env.Info(post.Content)
	return nil
}

// htmlTag matches markup stripped for the approximate word count.
var htmlTag = regexp.MustCompile(`<[^>]*>`)

func postInfo(ctx context.Context, remainder string, env *Env) error {
	activeProvider := env.Session.ActiveProvider()
	post, err := env.Blog.GetCurrentPost(ctx, env.Session)
	if err != nil {
		env.Info(err.Error())
		return nil
	}
	if post == nil {
		env.Info("No post is currently selected.")
		env.Info("Use /blog post select to choose a post.")
		return nil
	}

	wordCount := len(strings.Fields(htmlTag.ReplaceAllString(post.Content, " ")))

	lines := []string{
		fmt.Sprintf("Provider: %s", activeProvider),
		fmt.Sprintf("Title: %s", post.Title),
		fmt.Sprintf("Status: %s", post.Status),
		fmt.Sprintf("Created: %s", post.CreatedAt.Format(time.RFC1123)),
		fmt.Sprintf("Updated: %s", post.UpdatedAt.Format(time.RFC1123)),
		fmt.Sprintf("Word count (approx.): %d", wordCount),
	}
	if len(post.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("Tags: %s", strings.Join(post.Tags, ", ")))
	}
	if post.URL != "" {
		lines = append(lines, fmt.Sprintf("URL: %s", post.URL))
	}
	env.Info(strings.Join(lines, "\n"))
	return nil
}

func postClear(ctx context.Context, remainder string, env *Env) error {
	if err := env.Blog.ClearCurrentPost(ctx, env.Session); err != nil {
		env.Info(err.Error())
		return nil
	}
	env.Info("Post selection cleared. No post is currently selected.")
	return nil
}

func postPublish(ctx context.Context, remainder string, env *Env) error {
	result, err := env.Blog.PublishPost(ctx, env.Session)
	if err != nil {
		env.Info(err.Error())
		return nil
	}
	env.Info(result.Message)
	return nil
}

func testConnection(ctx context.Context, remainder string, env *Env) error {
	if err := env.Images.TestConnection(ctx, env.Session, env.Info); err != nil {
		env.Info(fmt.Sprintf("Blog connection test failed: %v", err))
	}
	return nil
}
