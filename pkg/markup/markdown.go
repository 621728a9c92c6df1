package markup

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders a markdown document for display.
type Markdown func(md string) string

// RawMarkdown returns the document unchanged.
func RawMarkdown(md string) string { return md }

// TerminalMarkdown renders markdown for a terminal of the given width with
// glamour. mono selects the colorless style. If the renderer cannot be
// built, or fails on a document, the raw text is shown instead.
func TerminalMarkdown(width int, mono bool) Markdown {
	if width <= 0 {
		width = 80
	}
	style := "dark"
	if mono {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return RawMarkdown
	}
	return func(md string) string {
		out, err := r.Render(md)
		if err != nil {
			return md
		}
		return strings.Trim(out, "\n")
	}
}
