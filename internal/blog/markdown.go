package blog

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownInstance is initialized once and reused. The converter
// configuration never changes and goldmark is safe to share; each
// Convert call creates its own parse state.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

// leadingHeading matches a single leading #-heading line. Post titles
// live in the title field, so a heading repeated at the top of the
// body is stripped before rendering.
var leadingHeading = regexp.MustCompile(`^\s*#.*`)

// RenderMarkdown strips a leading #-heading line from src and converts
// the remainder to HTML.
func RenderMarkdown(src string) (string, error) {
	src = strings.TrimSpace(leadingHeading.ReplaceAllString(src, ""))

	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
