package rhi

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/rhi/shader"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while a backend is opening on another goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for rhi and every backend package.
// By default rhi produces no log output. Pass nil to restore silence.
//
// Log levels used:
//   - [slog.LevelDebug]: resource creation, shader translation, pipeline cache misses
//   - [slog.LevelInfo]: lifecycle events (backend opened, default framebuffer resized)
//   - [slog.LevelWarn]: non-fatal issues (shader reload failed, debug layer unavailable)
//
// Nothing is logged from Set* or Draw* calls.
//
// Example:
//
//	rhi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	shader.SetLogger(l)
}

// Logger returns the current logger. Backend packages call this to share
// the configuration without holding their own copy.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
