package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/recommender/internal/crew"
	"github.com/dkoosis/recommender/internal/history"
	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/pkg/streamlog"
)

type display struct {
	mu      sync.Mutex
	renders []string
	toasts  []string
	elapsed []time.Duration
	results []string
}

func (d *display) Render(m string) { d.mu.Lock(); d.renders = append(d.renders, m); d.mu.Unlock() }
func (d *display) Notify(m string) { d.mu.Lock(); d.toasts = append(d.toasts, m); d.mu.Unlock() }
func (d *display) ShowElapsed(e time.Duration) { d.mu.Lock(); d.elapsed = append(d.elapsed, e); d.mu.Unlock() }
func (d *display) ShowResult(text string) { d.mu.Lock(); d.results = append(d.results, text); d.mu.Unlock() }

type memRecorder struct {
	records []history.Record
	err     error
}

func (m *memRecorder) Record(_ context.Context, r history.Record) error {
	m.records = append(m.records, r)
	return m.err
}

var june = trip.Params{Category: trip.Beaches, Budget: 5000, Headcount: 2, Type: trip.Couples, Month: time.June}

// chattyInvoker writes agent-style chunks before answering.
func chattyInvoker(answer string, err error, chunks ...string) InvokerFactory {
	return func(out io.Writer) crew.Invoker {
		return crew.InvokerFunc(func(context.Context, trip.Params) (string, error) {
			for _, c := range chunks {
				_, _ = io.WriteString(out, c)
			}
			return answer, err
		})
	}
}

func TestRunner_Run_ShowsResultAndElapsed(t *testing.T) {
	t.Parallel()

	d := &display{}
	rec := &memRecorder{}
	r := NewRunner(chattyInvoker("Go to Goa.", nil), WithRecorder(rec))

	res, err := r.Run(context.Background(), june, d)
	require.NoError(t, err)

	assert.Equal(t, "Go to Goa.", res.Text)
	assert.Equal(t, []string{"Go to Goa."}, d.results)
	require.Len(t, d.elapsed, 1)
	assert.GreaterOrEqual(t, d.elapsed[0], time.Duration(0))
	assert.NotEmpty(t, res.RunID)

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusSucceeded, rec.records[0].Status)
	assert.Equal(t, res.RunID, rec.records[0].RunID)
	assert.Equal(t, june, rec.records[0].Params)
}

func TestRunner_Run_StreamsThroughAdapter(t *testing.T) {
	t.Parallel()

	d := &display{}
	r := NewRunner(chattyInvoker("ok", nil,
		"\x1b[1m> Entering new CrewAgentExecutor chain...\x1b[0m\n",
		"Working Agent: Local City Expert\n",
		`Action Input: {"task": "Find beaches", "coworker": "Local City Expert"}`,
		" and no newline at the end",
	))

	_, err := r.Run(context.Background(), june, d)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"> :green[Entering new CrewAgentExecutor chain]...\n",
		"Working Agent: :green[Local City Expert]\n",
		`Action Input: {"task": "Find beaches", "coworker": ":green[Local City Expert]"} and no newline at the end`,
	}, d.renders)
	assert.Equal(t, []string{streamlog.RobotGlyph + " Find beaches"}, d.toasts)
}

func TestRunner_Run_ReturnsErrorWithoutResult_When_InvokerFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("groq unavailable")
	d := &display{}
	rec := &memRecorder{}
	r := NewRunner(chattyInvoker("", boom, "partial log\n"), WithRecorder(rec))

	res, err := r.Run(context.Background(), june, d)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	assert.Empty(t, d.results)
	assert.Empty(t, d.elapsed)
	assert.Equal(t, []string{"partial log\n"}, d.renders)

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusFailed, rec.records[0].Status)
	assert.Equal(t, "groq unavailable", rec.records[0].Error)
}

func TestRunner_Run_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	called := false
	r := NewRunner(func(io.Writer) crew.Invoker {
		called = true
		return nil
	})
	_, err := r.Run(context.Background(), trip.Params{Category: trip.Beaches, Budget: 100}, &display{})
	assert.ErrorIs(t, err, trip.ErrInvalidParams)
	assert.False(t, called)
}

func TestRunner_Run_IgnoresRecorderFailure(t *testing.T) {
	t.Parallel()

	r := NewRunner(chattyInvoker("fine", nil), WithRecorder(&memRecorder{err: fmt.Errorf("disk full")}))
	res, err := r.Run(context.Background(), june, &display{})
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Text)
}

func TestRunner_Run_ClampsElapsed_When_ClockGoesBackwards(t *testing.T) {
	t.Parallel()

	ticks := []time.Time{time.Unix(100, 0), time.Unix(90, 0)}
	r := NewRunner(chattyInvoker("x", nil), WithClock(func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	}))
	res, err := r.Run(context.Background(), june, &display{})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), res.Elapsed)
}

func TestRunner_Run_ReturnsErrBusy_When_RunInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRunner(func(io.Writer) crew.Invoker {
		return crew.InvokerFunc(func(context.Context, trip.Params) (string, error) {
			close(started)
			<-release
			return "done", nil
		})
	})

	errc := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), june, &display{})
		errc <- err
	}()
	<-started
	assert.True(t, r.Busy())

	_, err := r.Run(context.Background(), june, &display{})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, r.Busy())
}

func TestRunner_Run_UsesRunIDFromContext(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	r := NewRunner(chattyInvoker("ok", nil), WithRecorder(rec))

	res, err := r.Run(WithRunID(context.Background(), "run-42"), june, &display{})
	require.NoError(t, err)
	assert.Equal(t, "run-42", res.RunID)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "run-42", rec.records[0].RunID)
}
