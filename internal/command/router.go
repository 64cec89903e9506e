// Package command implements the chat command surface of the blog
// service: a /blog command tree usable from any line-oriented front
// end.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/session"
)

// Env carries everything a command invocation needs: the services, the
// invoking session, and an output sink for info lines.
type Env struct {
	Blog     *blog.Service
	Images   *blog.ImageService
	Sessions *session.Manager
	Session  *session.Session

	// Info renders a line back to the conversation.
	Info func(line string)
}

// Func executes one (sub)command with the unparsed remainder of the
// input line.
type Func func(ctx context.Context, remainder string, env *Env) error

// Router dispatches the first word of the remainder to a subcommand.
func Router(subcommands map[string]Func) Func {
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	available := strings.Join(names, ", ")

	return func(ctx context.Context, remainder string, env *Env) error {
		word, rest := splitWord(remainder)
		if word == "" {
			env.Info(fmt.Sprintf("Missing subcommand. Available: %s", available))
			return nil
		}
		fn, ok := subcommands[word]
		if !ok {
			env.Info(fmt.Sprintf("Unknown subcommand %q. Available: %s", word, available))
			return nil
		}
		return fn(ctx, rest, env)
	}
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	parts := strings.SplitN(s, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
