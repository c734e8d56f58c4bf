// Package jsbridge runs a JavaScript page counter, such as a bundled PDF
// renderer, inside an embedded goja runtime and exposes it as a
// pdfcount.ExternalCounter.
//
// The script must define a global function that receives the document as an
// ArrayBuffer and returns one of:
//
//   - a number, the page count;
//   - an object {page_count, width_pt, height_pt};
//   - a JSON string encoding that object;
//   - null or undefined when it cannot handle the document.
//
// A console.log function is provided and writes to the package logger at
// debug level.
package jsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/pdfcount"
)

// DefaultFunction is the global function called when no other name is set.
const DefaultFunction = "countPages"

// ErrNoFunction is returned by New when the script does not define the
// counting function.
var ErrNoFunction = errors.New("jsbridge: counting function not defined")

// Counter calls a JavaScript counting function. A Counter owns one goja
// runtime; calls are serialized.
type Counter struct {
	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

type config struct {
	function string
}

// Option configures New.
type Option func(*config)

// WithFunction sets the name of the global counting function.
func WithFunction(name string) Option {
	return func(c *config) {
		if name != "" {
			c.function = name
		}
	}
}

// New evaluates script and binds its counting function.
func New(script string, opts ...Option) (*Counter, error) {
	cfg := config{function: DefaultFunction}
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := goja.New()
	if err := registerConsole(vm); err != nil {
		return nil, err
	}
	if _, err := vm.RunString(script); err != nil {
		return nil, fmt.Errorf("jsbridge: evaluating script: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get(cfg.function))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, cfg.function)
	}
	return &Counter{vm: vm, fn: fn}, nil
}

func registerConsole(vm *goja.Runtime) error {
	console := vm.NewObject()
	err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logging.Logger().Debug("script", "message", strings.Join(parts, " "))
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return vm.Set("console", console)
}

// CountPages implements pdfcount.ExternalCounter. The script receives a copy
// of data. Cancelling ctx interrupts the script.
func (c *Counter) CountPages(ctx context.Context, data []byte) (pdfcount.ExternalCount, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return pdfcount.ExternalCount{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The watcher must be gone before the interrupt is cleared, or a late
	// cancellation could land on the next caller's run.
	done := make(chan struct{})
	exited := make(chan struct{})
	defer func() {
		close(done)
		<-exited
		c.vm.ClearInterrupt()
	}()

	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			c.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	buf := c.vm.NewArrayBuffer(append([]byte(nil), data...))
	val, err := c.fn(goja.Undefined(), c.vm.ToValue(buf))
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause := interrupted.Unwrap(); cause != nil {
				return pdfcount.ExternalCount{}, cause
			}
			return pdfcount.ExternalCount{}, context.Canceled
		}
		return pdfcount.ExternalCount{}, fmt.Errorf("jsbridge: %w", err)
	}
	return decode(val)
}

// wireCount is the object shape returned by the script.
type wireCount struct {
	PageCount *float64 `json:"page_count"`
	WidthPt   float64  `json:"width_pt"`
	HeightPt  float64  `json:"height_pt"`
}

func decode(v goja.Value) (pdfcount.ExternalCount, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return pdfcount.ExternalCount{}, pdfcount.ErrExternalUnavailable
	}

	var w wireCount
	switch x := v.Export().(type) {
	case string:
		if err := json.Unmarshal([]byte(x), &w); err != nil {
			return pdfcount.ExternalCount{}, fmt.Errorf("jsbridge: decoding result: %w", err)
		}
	case map[string]interface{}:
		if n, ok := toFloat(x["page_count"]); ok {
			w.PageCount = &n
		}
		w.WidthPt, _ = toFloat(x["width_pt"])
		w.HeightPt, _ = toFloat(x["height_pt"])
	default:
		n, ok := toFloat(x)
		if !ok {
			return pdfcount.ExternalCount{}, fmt.Errorf("jsbridge: unexpected result type %T", x)
		}
		w.PageCount = &n
	}

	if w.PageCount == nil {
		return pdfcount.ExternalCount{}, fmt.Errorf("jsbridge: result has no page_count: %w", pdfcount.ErrNotFound)
	}
	n := *w.PageCount
	if n != math.Trunc(n) || n < 0 || n > pdfcount.MaxPageCount {
		return pdfcount.ExternalCount{}, fmt.Errorf("jsbridge: implausible page count %v: %w", n, pdfcount.ErrMalformed)
	}
	return pdfcount.ExternalCount{PageCount: int(n), WidthPt: w.WidthPt, HeightPt: w.HeightPt}, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
