// Package analysis runs one recommendation end to end: it binds a fresh
// stream adapter to a display, times the invoker and reports the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkoosis/recommender/internal/crew"
	"github.com/dkoosis/recommender/internal/history"
	"github.com/dkoosis/recommender/internal/trip"
	"github.com/dkoosis/recommender/pkg/streamlog"
)

// ErrBusy is returned when a run is started while another is in flight.
var ErrBusy = errors.New("a recommendation is already running")

// Display is everything a run writes to: the live log panel, transient
// notifications, the stopwatch and the final result.
type Display interface {
	streamlog.Surface
	streamlog.Notifier
	ShowElapsed(d time.Duration)
	ShowResult(text string)
}

// InvokerFactory builds an invoker whose agents narrate to out.
type InvokerFactory func(out io.Writer) crew.Invoker

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, r history.Record) error
}

// Result is a finished run.
type Result struct {
	RunID     string
	Text      string
	Elapsed   time.Duration
	StartedAt time.Time
}

type runIDKey struct{}

// WithRunID returns a context whose run uses id instead of a generated one,
// so a caller that published the id earlier can find the run in history.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// Runner executes runs one at a time.
type Runner struct {
	newInvoker InvokerFactory
	recorder   Recorder
	log        *zap.Logger
	now        func() time.Time
	adapterOps []streamlog.Option
	running    atomic.Bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder stores every finished run.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithAdapterOptions passes extra options to each run's adapter.
func WithAdapterOptions(opts ...streamlog.Option) Option {
	return func(r *Runner) { r.adapterOps = append(r.adapterOps, opts...) }
}

// NewRunner returns a runner using factory for each run.
func NewRunner(factory InvokerFactory, opts ...Option) *Runner {
	r := &Runner{newInvoker: factory, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool { return r.running.Load() }

// Run validates p, streams the invoker's output through a new adapter to d,
// then shows the elapsed time and the result. On invoker failure nothing is
// shown beyond what was already streamed and the error is returned.
func (r *Runner) Run(ctx context.Context, p trip.Params, d Display) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)

	runID, ok := ctx.Value(runIDKey{}).(string)
	if !ok || runID == "" {
		runID = uuid.NewString()
	}
	log := r.log.With(zap.String("run_id", runID))

	opts := append([]streamlog.Option{streamlog.WithNotifier(d), streamlog.WithLogger(log)}, r.adapterOps...)
	adapter := streamlog.New(d, opts...)

	started := r.now()
	log.Info("run started", zap.Stringer("params", p))
	text, err := r.newInvoker(adapter).Run(ctx, p)
	_ = adapter.Close()
	elapsed := r.now().Sub(started)
	if elapsed < 0 {
		elapsed = 0
	}

	rec := history.Record{RunID: runID, Params: p, Elapsed: elapsed, CreatedAt: started}
	if err != nil {
		log.Error("run failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		rec.Status, rec.Error = history.StatusFailed, err.Error()
		r.record(ctx, log, rec)
		return nil, fmt.Errorf("recommendation failed: %w", err)
	}

	d.ShowElapsed(elapsed)
	d.ShowResult(text)
	log.Info("run finished", zap.Duration("elapsed", elapsed), zap.Int("result_bytes", len(text)))

	rec.Status, rec.Result = history.StatusSucceeded, text
	r.record(ctx, log, rec)
	return &Result{RunID: runID, Text: text, Elapsed: elapsed, StartedAt: started}, nil
}

// record is best effort; a broken history never fails a run.
func (r *Runner) record(ctx context.Context, log *zap.Logger, rec history.Record) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("recording run history failed", zap.Error(err))
	}
}
