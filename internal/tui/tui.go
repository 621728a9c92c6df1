// Package tui is the full-screen terminal display. The agent log scrolls in
// a viewport panel under a spinner, notifications appear as a toast for a
// few seconds, and the recommendation is rendered as markdown when the run
// finishes.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/pkg/markup"
)

// ToastDuration is how long a notification stays visible.
const ToastDuration = 4 * time.Second

const (
	status      = "Generating Results"
	chromeLines = 9 // title, params, status, toast, elapsed, help and borders
)

// Options configure the display.
type Options struct {
	// Renderer turns panel markup into terminal text. Defaults to markup.Plain.
	Renderer markup.Renderer
	// Mono renders the result without color.
	Mono   bool
	Input  io.Reader
	Output io.Writer
}

type (
	logMsg          string
	toastMsg        string
	toastExpiredMsg struct{ seq int }
	elapsedMsg      time.Duration
	resultMsg       string
	finishedMsg     struct{ err error }
)

// Model is the bubbletea model for one run.
type Model struct {
	params  trip.Params
	render  markup.Renderer
	mono    bool
	spinner spinner.Model
	panel   viewport.Model
	log     strings.Builder

	toast    string
	toastSeq int
	elapsed  time.Duration
	timed    bool
	result   string
	rendered string
	err      error
	done     bool
	width    int

	titleStyle lipgloss.Style
	panelStyle lipgloss.Style
	dimStyle   lipgloss.Style
	errStyle   lipgloss.Style
}

// NewModel returns the model for a run with parameters p.
func NewModel(p trip.Params, opts Options) Model {
	if opts.Renderer == nil {
		opts.Renderer = markup.Plain
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		params:     p,
		render:     opts.Renderer,
		mono:       opts.Mono,
		spinner:    sp,
		panel:      viewport.New(80, 15),
		width:      80,
		titleStyle: lipgloss.NewStyle().Bold(true),
		panelStyle: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		dimStyle:   lipgloss.NewStyle().Faint(true),
		errStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff2b2b")),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles program messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			if m.done {
				return m, tea.Quit
			}
		default:
			var cmd tea.Cmd
			m.panel, cmd = m.panel.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.panel.Width = max(msg.Width-4, 20)
		m.panel.Height = max(msg.Height-chromeLines, 3)
		m.panel.SetContent(m.log.String())
		m.panel.GotoBottom()
		if m.result != "" {
			m.rendered = m.renderResult()
		}
	case spinner.TickMsg:
		if m.done || m.timed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case logMsg:
		m.log.WriteString(m.render.Render(string(msg)))
		m.panel.SetContent(m.log.String())
		m.panel.GotoBottom()
	case toastMsg:
		m.toast = string(msg)
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Tick(ToastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
	case elapsedMsg:
		m.elapsed = time.Duration(msg)
		m.timed = true
	case resultMsg:
		m.result = string(msg)
		m.rendered = m.renderResult()
	case finishedMsg:
		m.done = true
		m.err = msg.err
	}
	return m, nil
}

func (m Model) renderResult() string {
	return markup.TerminalMarkdown(m.width-2, m.mono)(m.result)
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Recommender") + "\n")
	b.WriteString(m.dimStyle.Render(m.params.String()) + "\n")
	if !m.done && !m.timed {
		b.WriteString(m.spinner.View() + " " + status + "\n")
	}
	b.WriteString(m.panelStyle.Render(m.panel.View()) + "\n")
	if m.toast != "" {
		b.WriteString(m.toast + "\n")
	}
	if m.timed {
		fmt.Fprintf(&b, "Total Time Elapsed: %.2f seconds\n", m.elapsed.Seconds())
	}
	if m.rendered != "" {
		b.WriteString("\n" + m.titleStyle.Render("Results:") + "\n" + m.rendered + "\n")
	}
	if m.err != nil {
		b.WriteString(m.errStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.done {
		b.WriteString(m.dimStyle.Render("↑/↓ scroll • q quit") + "\n")
	} else {
		b.WriteString(m.dimStyle.Render("↑/↓ scroll • ctrl+c cancel") + "\n")
	}
	return b.String()
}

// Result is the raw recommendation text, empty if the run failed.
func (m Model) Result() string { return m.result }

// Err is the run error, if any.
func (m Model) Err() error { return m.err }

// Display forwards run output into a running program. It is safe for use
// from any goroutine.
type Display struct {
	send func(tea.Msg)
}

// Render appends a flushed log buffer to the panel.
func (d *Display) Render(m string) { d.send(logMsg(m)) }

// Notify shows a toast.
func (d *Display) Notify(message string) { d.send(toastMsg(message)) }

// ShowElapsed stops the spinner and shows the stopwatch.
func (d *Display) ShowElapsed(t time.Duration) { d.send(elapsedMsg(t)) }

// ShowResult shows the recommendation.
func (d *Display) ShowResult(text string) { d.send(resultMsg(text)) }

// Run drives the display while work executes on another goroutine. The
// screen stays up after work returns until the user quits; ctrl+c cancels
// the context passed to work. Run returns work's error.
func Run(ctx context.Context, p trip.Params, opts Options, work func(ctx context.Context, d *Display) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	prog := tea.NewProgram(NewModel(p, opts), progOpts...)
	d := &Display{send: prog.Send}

	workErr := make(chan error, 1)
	go func() {
		err := work(ctx, d)
		prog.Send(finishedMsg{err: err})
		workErr <- err
	}()

	_, runErr := prog.Run()
	cancel()
	err := <-workErr
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && err == nil {
		return fmt.Errorf("terminal display: %w", runErr)
	}
	return err
}
