package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Flatten converts markdown to the plain text a reader sees, i.e. the text
// content of the rendered HTML without trailing newlines. The reveal paces
// over this text.
func Flatten(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdownParser().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered markdown: %w", err)
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return strings.TrimRight(sb.String(), "\n"), nil
}

// collectText appends every text node under n in document order.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
