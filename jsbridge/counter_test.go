package jsbridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/pdfcount"
)

// pageScript counts "/Type /Page" markers that are not "/Type /Pages".
const pageScript = `
function countPages(buf) {
	var b = new Uint8Array(buf);
	var s = "";
	for (var i = 0; i < b.length; i++) s += String.fromCharCode(b[i]);
	var m = s.match(/\/Type\s*\/Page(?!s)/g);
	if (m === null) return null;
	return {page_count: m.length, width_pt: 612, height_pt: 792};
}
`

func TestCountPages(t *testing.T) {
	c, err := New(pageScript)
	require.NoError(t, err)

	data := []byte("%PDF-1.4 /Type /Pages /Type /Page /Type /Page /Type/Page")
	got, err := c.CountPages(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, pdfcount.ExternalCount{PageCount: 3, WidthPt: 612, HeightPt: 792}, got)
}

func TestCountPagesResultShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want pdfcount.ExternalCount
	}{
		{"integer", "return 7;", pdfcount.ExternalCount{PageCount: 7}},
		{"whole float", "return 4.0;", pdfcount.ExternalCount{PageCount: 4}},
		{"object", "return {page_count: 2, width_pt: 595.5, height_pt: 842};", pdfcount.ExternalCount{PageCount: 2, WidthPt: 595.5, HeightPt: 842}},
		{"json string", `return JSON.stringify({page_count: 5, width_pt: 100, height_pt: 200});`, pdfcount.ExternalCount{PageCount: 5, WidthPt: 100, HeightPt: 200}},
		{"zero", "return 0;", pdfcount.ExternalCount{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New("function countPages(buf) { " + tc.body + " }")
			require.NoError(t, err)
			got, err := c.CountPages(context.Background(), []byte("%PDF"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCountPagesFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"null", "return null;", pdfcount.ErrExternalUnavailable},
		{"undefined", "return;", pdfcount.ErrExternalUnavailable},
		{"missing count", "return {width_pt: 1};", pdfcount.ErrNotFound},
		{"fractional", "return 2.5;", pdfcount.ErrMalformed},
		{"negative", "return -1;", pdfcount.ErrMalformed},
		{"too large", "return 1e9;", pdfcount.ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New("function countPages(buf) { " + tc.body + " }")
			require.NoError(t, err)
			_, err = c.CountPages(context.Background(), nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCountPagesThrows(t *testing.T) {
	c, err := New(`function countPages(buf) { throw new Error("no renderer"); }`)
	require.NoError(t, err)

	_, err = c.CountPages(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no renderer")

	var ex *goja.Exception
	assert.True(t, errors.As(err, &ex))
}

func TestNew(t *testing.T) {
	_, err := New("var x = 1;")
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = New("function (")
	assert.Error(t, err)

	c, err := New("function pages() { return 9; }", WithFunction("pages"))
	require.NoError(t, err)
	got, err := c.CountPages(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 9, got.PageCount)
}

func TestCountPagesContextCancellation(t *testing.T) {
	c, err := New(`function countPages(buf) { while (true) {} }`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err = c.CountPages(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCountPagesRecoversAfterCancellation(t *testing.T) {
	c, err := New(`
var spin = true;
function countPages(buf) {
	if (spin) { spin = false; while (true) {} }
	return 1;
}`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	_, err = c.CountPages(ctx, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := c.CountPages(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PageCount)
}

func TestCountPagesCancelAfterReturn(t *testing.T) {
	c, err := New(pageScript)
	require.NoError(t, err)

	data := []byte("/Type /Page /Type /Page")
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		got, err := c.CountPages(ctx, data)
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, 2, got.PageCount)

		// cancelling a finished call must not touch the next one
		cancel()
		got, err = c.CountPages(context.Background(), data)
		require.NoError(t, err, "call %d after cancel", i)
		assert.Equal(t, 2, got.PageCount)
	}
}

func TestCountPagesImmediateCancel(t *testing.T) {
	c, err := New(pageScript)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.CountPages(ctx, []byte("/Type /Page"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountPagesDoesNotMutateInput(t *testing.T) {
	c, err := New(`function countPages(buf) { var b = new Uint8Array(buf); for (var i = 0; i < b.length; i++) b[i] = 0; return 1; }`)
	require.NoError(t, err)

	data := []byte("%PDF-1.7")
	_, err = c.CountPages(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}

func TestCountPagesConcurrent(t *testing.T) {
	c, err := New(pageScript)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.CountPages(context.Background(), []byte("/Type /Page /Type /Page"))
			if err == nil && got.PageCount != 2 {
				err = errors.New("wrong count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestConsoleLog(t *testing.T) {
	h := logging.NewBufferedHandler(slog.LevelDebug)
	logging.SetLogger(slog.New(h))
	defer logging.SetLogger(nil)

	c, err := New(`function countPages(buf) { console.log("bytes", buf.byteLength); return 1; }`)
	require.NoError(t, err)
	_, err = c.CountPages(context.Background(), []byte("abc"))
	require.NoError(t, err)

	assert.True(t, h.Contains("bytes 3"))
}

func TestCounterAsExternal(t *testing.T) {
	c, err := New(pageScript)
	require.NoError(t, err)

	res, err := pdfcount.CountExternal(context.Background(), c, []byte("/Type /Page"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, pdfcount.External, res.Strategy)

	_, err = pdfcount.CountExternal(context.Background(), c, []byte("nothing here"))
	assert.ErrorIs(t, err, pdfcount.ErrExternalUnavailable)
}
