package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Formatter produces the rich, final form of a message.
type Formatter interface {
	Format(markdown string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(string) (string, error)

func (f FormatterFunc) Format(s string) (string, error) { return f(s) }

// Plain returns markdown unchanged. Used when output is not a terminal.
var Plain Formatter = FormatterFunc(func(s string) (string, error) { return s, nil })

// GlamourFormatter renders markdown for the terminal.
type GlamourFormatter struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
}

// NewGlamourFormatter builds a formatter. style "auto" picks dark or light
// from the terminal background; any other value names a glamour style.
func NewGlamourFormatter(style string, wordWrap int) (*GlamourFormatter, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &GlamourFormatter{renderer: r}, nil
}

// Format renders markdown. The TermRenderer is not safe for concurrent use.
func (g *GlamourFormatter) Format(markdown string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out, err := g.renderer.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
