package pdfcount

import (
	"fmt"

	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/reader"
)

// MaxPageCount is the sanity bound on any parsed page count. Larger values
// are treated as not found.
const MaxPageCount = 1_000_000

// heuristicWarning is attached to every heuristic result.
const heuristicWarning = "Heuristic page count: the largest /Count was assumed to belong to the root Pages node and was not checked against the page tree"

// Result is the outcome of Extract. PageSizes has one entry per page and is
// empty when PageCount is 0.
type Result struct {
	PageCount int
	PageSizes []model.PageSize
	Strategy  Strategy
	Notes     []string
}

// Verified reports whether the count came from a structural strategy.
func (r Result) Verified() bool {
	return r.Strategy.Verified()
}

// DocumentModel is a fully parsed document.
type DocumentModel interface {
	// PageCount returns the number of leaf pages.
	PageCount() (int, error)
	PageBoxSource
}

// ModelOpener builds a DocumentModel from raw bytes.
type ModelOpener func(data []byte) (DocumentModel, error)

// OpenReader is the default ModelOpener, backed by package reader.
func OpenReader(data []byte) (DocumentModel, error) {
	r, err := reader.NewFromBytes(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type extractConfig struct {
	opener    ModelOpener
	fullParse bool
}

// Option configures Extract.
type Option func(*extractConfig)

// WithModelOpener replaces the full document model.
func WithModelOpener(opener ModelOpener) Option {
	return func(c *extractConfig) {
		if opener != nil {
			c.opener = opener
		}
	}
}

// WithoutFullParse disables the full document model. Page sizes then come
// from the byte-level box scan only.
func WithoutFullParse() Option {
	return func(c *extractConfig) {
		c.fullParse = false
	}
}

// Extract returns the page count and page sizes of the PDF in data. data
// is only read; the Result holds no reference to it.
//
// When every strategy fails the error is an *ExtractError.
func Extract(data []byte, opts ...Option) (Result, error) {
	cfg := extractConfig{opener: OpenReader, fullParse: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logging.Logger()
	failures := &ExtractError{}

	strategy := StrategyNone
	count, err := fastPathCount(data)
	if err == nil {
		strategy = SpecFollowing
	} else {
		failures.add(SpecFollowing, err)
		for _, h := range heuristics {
			n, err := h.run(data)
			if err != nil {
				log.Debug("heuristic failed", "strategy", h.strategy.String(), "error", err)
				failures.add(h.strategy, err)
				continue
			}
			count, strategy = n, h.strategy
			break
		}
	}

	// The document model is opened only when the count is still missing or
	// the byte scan finds no boxes to size pages from.
	var doc DocumentModel
	if strategy == StrategyNone {
		if !cfg.fullParse {
			failures.add(FullParse, fmt.Errorf("disabled: %w", ErrNotFound))
			return Result{}, failures
		}
		var openErr error
		doc, openErr = openModel(cfg.opener, data)
		n, err := fullParseCount(doc, openErr)
		if err != nil {
			log.Debug("full parse failed", "error", err)
			failures.add(FullParse, err)
			return Result{}, failures
		}
		if n == 0 {
			log.Debug("page count found", "strategy", FullParse.String(), "count", 0)
			return Result{Strategy: FullParse, Notes: []string{"PDF has no pages"}}, nil
		}
		count, strategy = n, FullParse
	}
	log.Debug("page count found", "strategy", strategy.String(), "count", count)

	res := Result{PageCount: count, Strategy: strategy}
	res.Notes = append(res.Notes, fmt.Sprintf("Page count strategy: %s", strategy))
	if strategy.Heuristic() {
		res.Notes = append(res.Notes, heuristicWarning)
	}

	bb := newByteBoxes(data)
	if doc == nil && cfg.fullParse && !bb.found() {
		doc, _ = openModel(cfg.opener, data)
	}
	var boxes PageBoxSource = bb
	if doc != nil {
		boxes = doc
	}
	sizes, notes := samplePageSizes(count, boxes)
	res.PageSizes = sizes
	res.Notes = append(res.Notes, notes...)
	return res, nil
}

// openModel runs the opener, turning a panic into an error.
func openModel(opener ModelOpener, data []byte) (doc DocumentModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	doc, err = opener(data)
	if err != nil {
		logging.Logger().Debug("document model unavailable", "error", err)
		return nil, err
	}
	return doc, nil
}

func fullParseCount(doc DocumentModel, openErr error) (n int, err error) {
	if doc == nil {
		return 0, fmt.Errorf("%w: %v", ErrParserFailure, openErr)
	}

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: panic: %v", ErrParserFailure, r)
		}
	}()
	n, err = doc.PageCount()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParserFailure, err)
	}
	if n > MaxPageCount {
		return 0, fmt.Errorf("%w: %d pages", ErrOverflow, n)
	}
	return n, nil
}
