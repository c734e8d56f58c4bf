package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// BufferedHandler is an slog.Handler that keeps records in memory as JSON
// lines. Tests install it to assert which extraction strategies ran.
//
//	h := logging.NewBufferedHandler(slog.LevelDebug)
//	logging.SetLogger(slog.New(h))
//	defer logging.SetLogger(nil)
type BufferedHandler struct {
	level  slog.Leveler
	state  *bufferState
	attrs  []slog.Attr
	groups []string
}

// bufferState is shared by every handler derived through WithAttrs/WithGroup.
type bufferState struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

type bufferedRecord struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	Attrs   []string `json:"attrs,omitempty"`
}

// NewBufferedHandler returns a handler recording everything at or above level.
func NewBufferedHandler(level slog.Leveler) *BufferedHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &BufferedHandler{level: level, state: &bufferState{}}
}

// Enabled implements slog.Handler.
func (h *BufferedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	rec := bufferedRecord{Level: r.Level.String(), Message: r.Message}
	for _, a := range h.attrs {
		rec.Attrs = append(rec.Attrs, h.qualify(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs = append(rec.Attrs, h.qualify(a))
		return true
	})

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.buf.Write(data)
	h.state.buf.WriteByte('\n')
	return nil
}

func (h *BufferedHandler) qualify(a slog.Attr) string {
	if len(h.groups) == 0 {
		return a.String()
	}
	return strings.Join(h.groups, ".") + "." + a.String()
}

// WithAttrs implements slog.Handler.
func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup implements slog.Handler.
func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// String returns everything captured so far.
func (h *BufferedHandler) String() string {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.buf.String()
}

// Contains reports whether the captured output contains s.
func (h *BufferedHandler) Contains(s string) bool {
	return strings.Contains(h.String(), s)
}

// Reset drops all captured output.
func (h *BufferedHandler) Reset() {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.buf.Reset()
}
