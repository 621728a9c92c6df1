package streamlog

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Default markers recognized in agent output.
const (
	ChainMarker       = "Entering new CrewAgentExecutor chain"
	LocalCityExpert   = "Local City Expert"
	TripMakerExpert   = "Trip Maker Expert"
	defaultColorIndex = 0
)

// Palette is the default color cycle.
var Palette = []string{"red", "green", "blue", "orange"}

// Surface is the display a flushed line buffer is rendered to.
// The markup may contain :color[text] spans that must be interpreted.
type Surface interface {
	Render(markup string)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(markup string)

// Render calls f(markup).
func (f SurfaceFunc) Render(markup string) { f(markup) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }

// Adapter consumes raw output chunks and renders them to a Surface.
type Adapter struct {
	mu sync.Mutex

	surface  Surface
	notifier Notifier
	log      *zap.Logger

	palette     []string
	chainMarker string
	roleLabels  []string

	colorIndex int
	buffer     []string
	flushes    int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithNotifier sets the notification sink. Without one, task fields are ignored.
func WithNotifier(n Notifier) Option {
	return func(a *Adapter) { a.notifier = n }
}

// WithPalette replaces the color cycle. Empty palettes are ignored.
func WithPalette(colors []string) Option {
	return func(a *Adapter) {
		if len(colors) > 0 {
			a.palette = append([]string(nil), colors...)
		}
	}
}

// WithMarkers replaces the chain-entry marker and role labels.
func WithMarkers(chain string, roles ...string) Option {
	return func(a *Adapter) {
		if chain != "" {
			a.chainMarker = chain
		}
		if len(roles) > 0 {
			a.roleLabels = append([]string(nil), roles...)
		}
	}
}

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns an Adapter bound to surface.
func New(surface Surface, opts ...Option) *Adapter {
	a := &Adapter{
		surface:     surface,
		log:         zap.NewNop(),
		palette:     Palette,
		chainMarker: ChainMarker,
		roleLabels:  []string{LocalCityExpert, TripMakerExpert},
		colorIndex:  defaultColorIndex,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write implements io.Writer so the adapter can be handed to any producer
// as its output sink. It never returns an error.
func (a *Adapter) Write(p []byte) (int, error) {
	a.Consume(string(p))
	return len(p), nil
}

// Consume processes one chunk: sanitize, notify, recolor, then buffer or flush.
func (a *Adapter) Consume(chunk string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cleaned := Sanitize(chunk)

	if payload, ok := ExtractNotification(cleaned); ok && a.notifier != nil {
		a.notifier.Notify(notificationText(payload))
	}

	if strings.Contains(cleaned, a.chainMarker) {
		// Once per chunk, however many times the marker occurs.
		a.colorIndex = (a.colorIndex + 1) % len(a.palette)
		cleaned = strings.ReplaceAll(cleaned, a.chainMarker, wrap(a.palette[a.colorIndex], a.chainMarker))
	}

	for _, label := range a.roleLabels {
		if strings.Contains(cleaned, label) {
			cleaned = strings.ReplaceAll(cleaned, label, wrap(a.palette[a.colorIndex], label))
		}
	}

	a.buffer = append(a.buffer, cleaned)

	// The flush decision looks at the raw chunk, not the sanitized one.
	if strings.Contains(chunk, "\n") {
		a.flushLocked()
	}
}

// Pending returns the buffered text that has not been rendered yet.
func (a *Adapter) Pending() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.buffer, "")
}

// Color returns the color name the cycle currently holds.
func (a *Adapter) Color() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.palette[a.colorIndex]
}

// Close renders any trailing text left in the buffer by a final chunk that
// had no newline. It is safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.buffer) > 0 {
		a.flushLocked()
	}
	return nil
}

func (a *Adapter) flushLocked() {
	markup := strings.Join(a.buffer, "")
	a.buffer = a.buffer[:0]
	a.flushes++
	a.log.Debug("flush", zap.Int("seq", a.flushes), zap.Int("bytes", len(markup)))
	if a.surface != nil {
		a.surface.Render(markup)
	}
}

// wrap encloses text in an inline color span.
func wrap(color, text string) string {
	return ":" + color + "[" + text + "]"
}
