package logging_test

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pagecount/logging"
)

func TestLogger_DefaultDiscards(t *testing.T) {
	logging.SetLogger(nil)

	l := logging.Logger()
	require.NotNil(t, l)
	assert.Equal(t, slog.DiscardHandler, l.Handler())
}

func TestSetLogger_CapturesRecords(t *testing.T) {
	h := logging.NewBufferedHandler(slog.LevelDebug)
	logging.SetLogger(slog.New(h))
	defer logging.SetLogger(nil)

	logging.Logger().Debug("strategy failed", slog.String("strategy", "spec-following"))

	assert.True(t, h.Contains("strategy failed"))
	assert.True(t, h.Contains("strategy=spec-following"))
}

func TestBufferedHandler_LevelFilter(t *testing.T) {
	h := logging.NewBufferedHandler(slog.LevelInfo)
	l := slog.New(h)

	l.Debug("hidden")
	l.Info("shown")

	assert.False(t, h.Contains("hidden"))
	assert.True(t, h.Contains("shown"))
}

func TestBufferedHandler_GroupsAndAttrs(t *testing.T) {
	h := logging.NewBufferedHandler(nil)
	l := slog.New(h).WithGroup("pdf").With(slog.Int("size", 42))

	l.Debug("opened", slog.String("file", "a.pdf"))

	out := h.String()
	assert.Contains(t, out, "pdf.size=42")
	assert.Contains(t, out, "pdf.file=a.pdf")

	h.Reset()
	assert.Empty(t, h.String())
}

func TestLogger_ConcurrentAccess(t *testing.T) {
	defer logging.SetLogger(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				logging.SetLogger(slog.New(logging.NewBufferedHandler(nil)))
			}
			logging.Logger().Debug("tick", slog.Int("i", i))
		}(i)
	}
	wg.Wait()
}
