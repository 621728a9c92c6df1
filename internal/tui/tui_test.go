package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/pkg/markup"
)

var june = trip.Params{Category: trip.Beaches, Budget: 5000, Headcount: 2, Type: trip.Couples, Month: time.June}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_View_ShowsParamsAndSpinner_When_Running(t *testing.T) {
	t.Parallel()

	view := NewModel(june, Options{}).View()
	assert.Contains(t, view, "Recommender")
	assert.Contains(t, view, "Beaches · ₹5000 · 2 people · Couples · June")
	assert.Contains(t, view, status)
	assert.Contains(t, view, "ctrl+c cancel")
}

func TestModel_Update_AppendsRenderedLog(t *testing.T) {
	t.Parallel()

	m := NewModel(june, Options{Renderer: markup.Plain})
	m, _ = update(t, m, logMsg("> :green[Entering new CrewAgentExecutor chain]...\n"))
	m, _ = update(t, m, logMsg("Working Agent: :red[Local City Expert]\n"))

	assert.Equal(t, "> Entering new CrewAgentExecutor chain...\nWorking Agent: Local City Expert\n", m.log.String())
	assert.Contains(t, m.View(), "Working Agent: Local City Expert")
}

func TestModel_Toast_Expires_OnlyForLatest(t *testing.T) {
	t.Parallel()

	m := NewModel(june, Options{})
	m, cmd := update(t, m, toastMsg("🤖 Find beaches"))
	assert.NotNil(t, cmd, "expiry scheduled")
	first := m.toastSeq

	m, _ = update(t, m, toastMsg("🤖 Find hotels"))
	m, _ = update(t, m, toastExpiredMsg{seq: first})
	assert.Equal(t, "🤖 Find hotels", m.toast, "stale expiry ignored")
	assert.Contains(t, m.View(), "🤖 Find hotels")

	m, _ = update(t, m, toastExpiredMsg{seq: m.toastSeq})
	assert.Empty(t, m.toast)
}

func TestModel_Update_ShowsElapsedAndResult(t *testing.T) {
	t.Parallel()

	m := NewModel(june, Options{Mono: true})
	m, _ = update(t, m, elapsedMsg(1500*time.Millisecond))
	m, _ = update(t, m, resultMsg("# Goa\n\nVisit Palolem beach."))
	m, _ = update(t, m, finishedMsg{})

	view := m.View()
	assert.NotContains(t, view, status)
	assert.Contains(t, view, "Total Time Elapsed: 1.50 seconds")
	assert.Contains(t, view, "Results:")
	assert.Contains(t, view, "Palolem")
	assert.Contains(t, view, "q quit")
	assert.Equal(t, "# Goa\n\nVisit Palolem beach.", m.Result())
	assert.NoError(t, m.Err())
}

func TestModel_Update_ShowsZeroElapsed(t *testing.T) {
	t.Parallel()

	m := NewModel(june, Options{Mono: true})
	m, _ = update(t, m, elapsedMsg(0))

	view := m.View()
	assert.Contains(t, view, "Total Time Elapsed: 0.00 seconds")
	assert.NotContains(t, view, status, "spinner stops once timed")

	_, cmd := update(t, m, m.spinner.Tick())
	assert.Nil(t, cmd)
}

func TestModel_Update_ShowsError_When_RunFails(t *testing.T) {
	t.Parallel()

	m := NewModel(june, Options{})
	m, _ = update(t, m, finishedMsg{err: errors.New("rate limited")})

	assert.EqualError(t, m.Err(), "rate limited")
	assert.Contains(t, m.View(), "Error: rate limited")
	assert.NotContains(t, m.View(), "Total Time Elapsed")
}

func TestModel_Quit_OnlyAfterDone(t *testing.T) {
	t.Parallel()

	q := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
	m := NewModel(june, Options{})

	_, cmd := update(t, m, q)
	assert.Nil(t, cmd)

	m, _ = update(t, m, finishedMsg{})
	_, cmd = update(t, m, q)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_CtrlC_QuitsWhileRunning(t *testing.T) {
	t.Parallel()

	_, cmd := update(t, NewModel(june, Options{}), tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowSize_ResizesPanel(t *testing.T) {
	t.Parallel()

	m, _ := update(t, NewModel(june, Options{}), tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 96, m.panel.Width)
	assert.Equal(t, 40-chromeLines, m.panel.Height)
}

func TestDisplay_SendsMessages(t *testing.T) {
	t.Parallel()

	var got []tea.Msg
	d := &Display{send: func(msg tea.Msg) { got = append(got, msg) }}
	d.Render("log\n")
	d.Notify("🤖 hi")
	d.ShowElapsed(time.Second)
	d.ShowResult("done")

	assert.Equal(t, []tea.Msg{
		logMsg("log\n"),
		toastMsg("🤖 hi"),
		elapsedMsg(time.Second),
		resultMsg("done"),
	}, got)
}
