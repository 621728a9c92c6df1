// Package console is the plain terminal display: the agent log scrolls by
// with colored markers while a footer shows progress and the latest
// notification.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/pkg/markup"
)

const status = "⏳ Generating Results"

// Options configure a Console.
type Options struct {
	// Renderer turns panel markup into terminal text. Defaults to markup.Plain.
	Renderer markup.Renderer
	// Markdown renders the final result. Defaults to markup.RawMarkdown.
	Markdown markup.Markdown
	// Interactive enables the erasable footer; otherwise notifications are
	// written to the error stream as lines.
	Interactive bool
	Width       int
	Height      int
}

// Console implements analysis.Display on a terminal stream.
type Console struct {
	mu       sync.Mutex
	tw       *termWriter
	errOut   io.Writer
	render   markup.Renderer
	markdown markup.Markdown
	footer   bool
	working  bool
	toast    string
	title    lipgloss.Style
}

// New returns a console writing to out, with notifications on errOut when
// not interactive.
func New(out, errOut io.Writer, opts Options) *Console {
	if opts.Renderer == nil {
		opts.Renderer = markup.Plain
	}
	if opts.Markdown == nil {
		opts.Markdown = markup.RawMarkdown
	}
	return &Console{
		tw:       newTermWriter(out, opts.Width, opts.Height),
		errOut:   errOut,
		render:   opts.Renderer,
		markdown: opts.Markdown,
		footer:   opts.Interactive,
		title:    lipgloss.NewStyle().Bold(true),
	}
}

// Start prints the run header and shows the progress footer.
func (c *Console) Start(p trip.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tw.Print(c.title.Render("Recommender") + "\n" + p.String() + "\n")
	c.working = true
	c.redrawLocked()
}

// Render prints a flushed log buffer.
func (c *Console) Render(m string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tw.EraseFooter()
	c.tw.Print(c.render.Render(m))
	c.redrawLocked()
}

// Notify shows message in the footer, or as a line on the error stream.
func (c *Console) Notify(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.footer {
		fmt.Fprintln(c.errOut, message)
		return
	}
	c.tw.EraseFooter()
	c.toast = message
	c.redrawLocked()
}

// ShowElapsed ends the progress footer and prints the stopwatch line.
func (c *Console) ShowElapsed(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tw.EraseFooter()
	c.working = false
	c.toast = ""
	c.tw.Print(fmt.Sprintf("\nTotal Time Elapsed: %.2f seconds", d.Seconds()))
}

// ShowResult prints the final recommendation.
func (c *Console) ShowResult(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tw.EraseFooter()
	c.tw.Print("\n" + c.title.Render("Results:") + "\n")
	c.tw.Print(c.markdown(text))
}

// Stop removes the footer, for runs that end in an error.
func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tw.EraseFooter()
	c.working = false
	c.toast = ""
}

func (c *Console) redrawLocked() {
	if !c.footer {
		return
	}
	var lines []string
	if c.working {
		lines = append(lines, status)
	}
	if c.toast != "" {
		lines = append(lines, c.toast)
	}
	c.tw.DrawFooter(lines)
}
