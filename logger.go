package camview

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/camview/capture"
	"github.com/gogpu/camview/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for camview and its sub-packages.
// By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by camview:
//   - [slog.LevelDebug]: per-frame diagnostics (buffer sizes, workgroups)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, streaming started, surface configured)
//   - [slog.LevelWarn]: dropped frames and surface reconfigure retries
//   - [slog.LevelError]: capture faults
//
// Example:
//
//	camview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	capture.SetLogger(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by camview.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
