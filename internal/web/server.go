// Package web serves the trip form in a browser and streams each run's log,
// notifications and result to it as server-sent events.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkoosis/recommender/internal/analysis"
	"github.com/dkoosis/recommender/internal/crew"
	"github.com/dkoosis/recommender/internal/trip"
)

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

// keepRuns bounds how many finished runs stay replayable.
const keepRuns = 16

// toastTTL matches the terminal toast.
const toastTTL = 4 * time.Second

// Runner executes one recommendation against a display.
type Runner interface {
	Run(ctx context.Context, p trip.Params, d analysis.Display) (*analysis.Result, error)
}

// Server is the HTTP surface. Only one run is in flight at a time.
type Server struct {
	runner Runner
	log    *zap.Logger
	mux    *http.ServeMux

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	runs   map[string]*run
	order  []string
	active *run
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a server executing runs with runner.
func New(runner Runner, opts ...Option) *Server {
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		runner: runner,
		log:    zap.NewNop(),
		mux:    http.NewServeMux(),
		base:   base,
		cancel: cancel,
		runs:   make(map[string]*run),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /runs", s.handleStart)
	s.mux.HandleFunc("GET /runs/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close cancels the in-flight run and waits for it to finish.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

type indexData struct {
	Agents      []crew.Profile
	Categories  []trip.Category
	Types       []trip.Type
	Months      []time.Month
	MinBudget   int
	ToastMillis int64
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	months := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, m)
	}
	data := indexData{
		Agents:      crew.Team(),
		Categories:  trip.Categories,
		Types:       trip.Types,
		Months:      months,
		MinBudget:   trip.MinBudget,
		ToastMillis: toastTTL.Milliseconds(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.log.Error("rendering index failed", zap.Error(err))
	}
}

type startResponse struct {
	ID     string `json:"id"`
	Events string `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	p, err := trip.Parse(
		r.PostForm.Get("category"),
		r.PostForm.Get("budget"),
		r.PostForm.Get("headcount"),
		r.PostForm.Get("trip_type"),
		r.PostForm.Get("month"),
	)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rn, ok := s.claim()
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: analysis.ErrBusy.Error()})
		return
	}
	log := s.log.With(zap.String("run_id", rn.id))
	log.Info("run accepted", zap.Stringer("params", p))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer rn.finish()
		if _, err := s.runner.Run(analysis.WithRunID(s.base, rn.id), p, rn); err != nil {
			log.Warn("run failed", zap.Error(err))
			rn.emit(EventError, err.Error())
		}
	}()

	writeJSON(w, http.StatusAccepted, startResponse{ID: rn.id, Events: "/runs/" + rn.id + "/events"})
}

// claim registers a new run unless one is still in flight.
func (s *Server) claim() (*run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && !s.active.finished() {
		return nil, false
	}
	rn := newRun(uuid.NewString())
	s.runs[rn.id] = rn
	s.order = append(s.order, rn.id)
	if len(s.order) > keepRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	s.active = rn
	return rn, true
}

func (s *Server) lookup(id string) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rn := s.lookup(r.PathValue("id"))
	if rn == nil {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	next := 0
	if last, err := strconv.Atoi(r.Header.Get("Last-Event-ID")); err == nil && last > 0 {
		next = last
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		events, done, changed := rn.since(next)
		for _, ev := range events {
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
		next += len(events)
		flusher.Flush()
		if done {
			return
		}
		select {
		case <-changed:
		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent sends ev with its payload as a JSON string, which keeps
// multi-line log text on one data line.
func writeEvent(w http.ResponseWriter, ev event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}

type healthResponse struct {
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	busy := s.active != nil && !s.active.finished()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Busy: busy})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves s on addr until ctx is cancelled, then shuts down
// gracefully and cancels any run in flight.
func ListenAndServe(ctx context.Context, addr string, s *Server, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("serving", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
