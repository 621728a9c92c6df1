package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// termWriter is the single point of terminal output. Everything the console
// prints goes through it so the footer (status and latest notification)
// can be erased before and redrawn after each write.
type termWriter struct {
	out         io.Writer
	width       int
	height      int
	footerLines int
}

func newTermWriter(out io.Writer, width, height int) *termWriter {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return &termWriter{out: out, width: width, height: height}
}

// Print writes s to the scrolling region, terminating it with a newline
// if it lacks one.
func (w *termWriter) Print(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	fmt.Fprint(w.out, s)
}

// EraseFooter removes the current footer. No-op if none is drawn.
func (w *termWriter) EraseFooter() {
	if w.footerLines == 0 {
		return
	}
	for i := 0; i < w.footerLines; i++ {
		fmt.Fprint(w.out, "\033[1A\r\033[2K")
	}
	w.footerLines = 0
}

// DrawFooter prints footer lines truncated to the terminal width, at most
// max(2, height/3) of them.
func (w *termWriter) DrawFooter(lines []string) {
	limit := w.height / 3
	if limit < 2 {
		limit = 2
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		fmt.Fprintln(w.out, truncateToWidth(line, w.width))
	}
	w.footerLines = len(lines)
}

// truncateToWidth cuts s to width display cells, counting wide runes
// such as emoji as two.
func truncateToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
