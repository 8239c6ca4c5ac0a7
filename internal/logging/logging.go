package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Key constants for structured log fields.
const (
	KeyComponent  = "component"
	KeyDisplay    = "display"
	KeyCycleID    = "cycleId"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
	KeyHResult    = "hresult"
)

type contextKey struct{}

// router forwards records to the handler installed by the latest Init. The
// engine is loaded into a host process long before anyone configures logging,
// so package loggers hold the router and never a concrete handler.
type router struct {
	live  *atomic.Pointer[installed]
	steps []func(slog.Handler) slog.Handler
}

// installed boxes the current handler so the atomic always stores one type,
// whatever handler Init picked.
type installed struct{ h slog.Handler }

func newRouter(h slog.Handler) *router {
	r := &router{live: new(atomic.Pointer[installed])}
	r.install(h)
	return r
}

func (r *router) install(h slog.Handler) {
	r.live.Store(&installed{h: h})
}

// resolve replays the logger's With and WithGroup calls, in call order, onto
// the live handler.
func (r *router) resolve() slog.Handler {
	h := r.live.Load().h
	for _, step := range r.steps {
		h = step(h)
	}
	return h
}

func (r *router) derive(step func(slog.Handler) slog.Handler) *router {
	steps := make([]func(slog.Handler) slog.Handler, 0, len(r.steps)+1)
	steps = append(steps, r.steps...)
	return &router{live: r.live, steps: append(steps, step)}
}

func (r *router) Enabled(ctx context.Context, level slog.Level) bool {
	return r.live.Load().h.Enabled(ctx, level)
}

func (r *router) Handle(ctx context.Context, record slog.Record) error {
	return r.resolve().Handle(ctx, record)
}

func (r *router) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return r
	}
	attrs = append([]slog.Attr(nil), attrs...)
	return r.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (r *router) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	return r.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

var (
	rootHandler   = newRouter(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	defaultLogger = slog.New(rootHandler)
)

func init() {
	slog.SetDefault(defaultLogger)
}

// Init initializes the global logger. Call once after config is loaded.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// output: writer to log to (nil = os.Stderr)
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	rootHandler.install(handler)
	defaultLogger = slog.New(rootHandler)
	slog.SetDefault(defaultLogger)
}

// Discard routes every logger to io.Discard. Tests that exercise noisy
// failure paths use it to keep output readable.
func Discard() {
	rootHandler.install(slog.NewTextHandler(io.Discard, nil))
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return slog.New(rootHandler).With(slog.String(KeyComponent, component))
}

// WithCycle returns a child logger carrying the capture cycle id.
func WithCycle(logger *slog.Logger, cycleID string) *slog.Logger {
	return logger.With(slog.String(KeyCycleID, cycleID))
}

// WithDisplay returns a child logger carrying the display identity.
func WithDisplay(logger *slog.Logger, display string) *slog.Logger {
	return logger.With(slog.String(KeyDisplay, display))
}

// NewContext returns a new context carrying the given logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from context, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
