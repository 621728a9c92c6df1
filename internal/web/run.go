package web

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"github.com/dkoosis/recommender/pkg/markup"
)

// Event types sent on a run's stream.
const (
	EventLog     = "log"
	EventToast   = "toast"
	EventElapsed = "elapsed"
	EventResult  = "result"
	EventError   = "error"
	EventDone    = "done"
)

// event is one server-sent event. IDs start at 1 so a reconnecting client's
// Last-Event-ID is the count of events it has seen.
type event struct {
	ID   int
	Type string
	Data string
}

// run is the append-only event log of one recommendation. It is the
// display the runner writes to; any number of streams replay it.
type run struct {
	id string
	md goldmark.Markdown

	mu      sync.Mutex
	events  []event
	done    bool
	changed chan struct{}
}

func newRun(id string) *run {
	return &run{id: id, md: goldmark.New(), changed: make(chan struct{})}
}

func (r *run) emit(typ, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.appendLocked(typ, data)
}

func (r *run) appendLocked(typ, data string) {
	r.events = append(r.events, event{ID: len(r.events) + 1, Type: typ, Data: data})
	close(r.changed)
	r.changed = make(chan struct{})
}

// finish appends the done event and closes the log.
func (r *run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.appendLocked(EventDone, "")
	r.done = true
}

func (r *run) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// since returns the events after the first n, whether the log is closed, and
// a channel closed on the next append.
func (r *run) since(n int) ([]event, bool, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.events) {
		n = len(r.events)
	}
	return slices.Clone(r.events[n:]), r.done, r.changed
}

func (r *run) Render(m string) { r.emit(EventLog, markup.HTML.Render(m)) }

func (r *run) Notify(message string) { r.emit(EventToast, message) }

func (r *run) ShowElapsed(d time.Duration) { r.emit(EventElapsed, fmt.Sprintf("%.2f", d.Seconds())) }

func (r *run) ShowResult(text string) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		r.emit(EventResult, "<pre>"+markup.HTML.Render(text)+"</pre>")
		return
	}
	r.emit(EventResult, buf.String())
}
