package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dkoosis/recommender/internal/analysis"
	"github.com/dkoosis/recommender/internal/trip"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts in init and never exits.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, p trip.Params, d analysis.Display) (*analysis.Result, error)

func (f runnerFunc) Run(ctx context.Context, p trip.Params, d analysis.Display) (*analysis.Result, error) {
	return f(ctx, p, d)
}

var validForm = url.Values{
	"category":  {"Beaches"},
	"budget":    {"5000"},
	"headcount": {"2"},
	"trip_type": {"Couples"},
	"month":     {"June"},
}

type sse struct {
	id, typ string
	data    string
}

func readEvents(t *testing.T, body io.Reader) []sse {
	t.Helper()
	var (
		out []sse
		cur sse
	)
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			out = append(out, cur)
			cur = sse{}
		case strings.HasPrefix(line, "id: "):
			cur.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			cur.typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.data))
		}
	}
	require.NoError(t, sc.Err())
	return out
}

func start(t *testing.T, ts *httptest.Server, form url.Values) (*http.Response, startResponse) {
	t.Helper()
	resp, err := http.PostForm(ts.URL+"/runs", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body startResponse
	if resp.StatusCode == http.StatusAccepted {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func newTestServer(t *testing.T, r Runner) *httptest.Server {
	t.Helper()
	s := New(r)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return ts
}

func TestServer_Index_RendersForm(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, runnerFunc(func(context.Context, trip.Params, analysis.Display) (*analysis.Result, error) {
		return nil, nil
	}))
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := string(page)
	assert.Contains(t, body, `name="budget" min="3000"`)
	assert.Contains(t, body, `name="headcount" min="1"`)
	assert.Contains(t, body, "<option>Road Trip</option>")
	assert.Contains(t, body, "<option>December</option>")
	assert.Contains(t, body, "<option>Solo</option>")
	assert.Contains(t, body, "Local City Expert")
}

func TestServer_Run_StreamsEventsInOrder(t *testing.T) {
	t.Parallel()

	got := make(chan trip.Params, 1)
	ts := newTestServer(t, runnerFunc(func(_ context.Context, p trip.Params, d analysis.Display) (*analysis.Result, error) {
		got <- p
		d.Render("Working Agent: :red[Local City Expert]\n")
		d.Notify("🤖 Find beaches")
		d.ShowElapsed(1500 * time.Millisecond)
		d.ShowResult("# Goa")
		return &analysis.Result{Text: "# Goa"}, nil
	}))

	resp, started := start(t, ts, validForm)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/runs/"+started.ID+"/events", started.Events)

	stream, err := http.Get(ts.URL + started.Events)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	events := readEvents(t, stream.Body)
	require.Len(t, events, 5)
	assert.Equal(t, sse{"1", EventLog, `Working Agent: <span style="color:#ff2b2b">Local City Expert</span>` + "\n"}, events[0])
	assert.Equal(t, sse{"2", EventToast, "🤖 Find beaches"}, events[1])
	assert.Equal(t, sse{"3", EventElapsed, "1.50"}, events[2])
	assert.Equal(t, EventResult, events[3].typ)
	assert.Contains(t, events[3].data, "<h1>Goa</h1>")
	assert.Equal(t, EventDone, events[4].typ)

	assert.Equal(t, trip.Params{Category: trip.Beaches, Budget: 5000, Headcount: 2, Type: trip.Couples, Month: time.June}, <-got)
}

func TestServer_Events_ResumeAfterLastEventID(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, runnerFunc(func(_ context.Context, _ trip.Params, d analysis.Display) (*analysis.Result, error) {
		d.Render("one\n")
		d.Render("two\n")
		return &analysis.Result{}, nil
	}))
	_, started := start(t, ts, validForm)

	// Drain once so the run is complete before resuming.
	first, err := http.Get(ts.URL + started.Events)
	require.NoError(t, err)
	readEvents(t, first.Body)
	first.Body.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+started.Events, nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 2)
	assert.Equal(t, sse{"2", EventLog, "two\n"}, events[0])
	assert.Equal(t, EventDone, events[1].typ)
}

func TestServer_Run_StreamsError_When_RunFails(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, runnerFunc(func(context.Context, trip.Params, analysis.Display) (*analysis.Result, error) {
		return nil, errors.New("recommendation failed: rate limited")
	}))
	_, started := start(t, ts, validForm)

	stream, err := http.Get(ts.URL + started.Events)
	require.NoError(t, err)
	defer stream.Body.Close()

	events := readEvents(t, stream.Body)
	require.Len(t, events, 2)
	assert.Equal(t, sse{"1", EventError, "recommendation failed: rate limited"}, events[0])
	assert.Equal(t, EventDone, events[1].typ)
}

func TestServer_Start_Rejects_When_BudgetTooLow(t *testing.T) {
	t.Parallel()

	called := false
	ts := newTestServer(t, runnerFunc(func(context.Context, trip.Params, analysis.Display) (*analysis.Result, error) {
		called = true
		return nil, nil
	}))

	form := url.Values{}
	for k, v := range validForm {
		form[k] = v
	}
	form.Set("budget", "2999")
	resp, err := http.PostForm(ts.URL+"/runs", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "budget")
	assert.False(t, called)
}

func TestServer_Start_Conflicts_When_RunInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := newTestServer(t, runnerFunc(func(ctx context.Context, _ trip.Params, _ analysis.Display) (*analysis.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return &analysis.Result{}, nil
	}))

	resp, started := start(t, ts, validForm)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = start(t, ts, validForm)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var h healthResponse
	require.NoError(t, json.NewDecoder(health.Body).Decode(&h))
	health.Body.Close()
	assert.Equal(t, healthResponse{Status: "ok", Busy: true}, h)

	close(release)
	stream, err := http.Get(ts.URL + started.Events)
	require.NoError(t, err)
	readEvents(t, stream.Body)
	stream.Body.Close()

	resp, _ = start(t, ts, validForm)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestServer_Events_NotFound_When_UnknownRun(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, runnerFunc(func(context.Context, trip.Params, analysis.Display) (*analysis.Result, error) {
		return nil, nil
	}))
	resp, err := http.Get(ts.URL + "/runs/nope/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_IgnoresEventsAfterFinish(t *testing.T) {
	t.Parallel()

	r := newRun("x")
	r.Notify("first")
	r.finish()
	r.Notify("late")
	r.finish()

	events, done, _ := r.since(0)
	assert.True(t, done)
	require.Len(t, events, 2)
	assert.Equal(t, EventDone, events[1].Type)

	events, _, _ = r.since(10)
	assert.Empty(t, events)
}
