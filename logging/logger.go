// Package logging holds the package-level *slog.Logger used for debug output
// across pagecount.
//
// Nothing is logged unless a caller installs a logger:
//
//	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
package logging

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetLogger installs sl as the package logger. Passing nil restores the
// discard logger. Safe for concurrent use.
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		sl = newDiscardLogger()
	}
	logger.Store(sl)
}

// Logger returns the package logger, or a discard logger when none was set.
// Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	l := newDiscardLogger()
	if logger.CompareAndSwap(nil, l) {
		return l
	}
	return logger.Load()
}
