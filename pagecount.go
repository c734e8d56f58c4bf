// Package pagecount estimates how many printed pages a document occupies.
//
// PDFs are counted exactly by package pdfcount. Office and OpenDocument
// archives report the count their authoring application saved when one is
// present. Text-like formats, EPUB included, are estimated from their
// visible character count.
//
// Basic usage:
//
//	res, err := pagecount.Estimate(data, "report.pdf")
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(res.PageCount, res.Notes)
//
// With options:
//
//	est := pagecount.New(
//	    pagecount.WithPaper(model.Letter),
//	    pagecount.WithCharsPerPage(2000),
//	)
//	res, err := est.Estimate(ctx, data, "notes.md")
//
// For hosts that exchange JSON, see EstimateJSON and EstimateBase64JSON.
package pagecount

import (
	"context"
	"errors"
	"fmt"

	"github.com/tsawler/pagecount/docx"
	"github.com/tsawler/pagecount/epubdoc"
	"github.com/tsawler/pagecount/format"
	"github.com/tsawler/pagecount/htmldoc"
	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/odt"
	"github.com/tsawler/pagecount/pdfcount"
	"github.com/tsawler/pagecount/pptx"
	"github.com/tsawler/pagecount/textdoc"
	"github.com/tsawler/pagecount/xlsx"
)

// ErrUnsupportedFormat is returned for data whose format could not be
// detected or has no estimator.
var ErrUnsupportedFormat = errors.New("unsupported or unrecognized format")

// EstimateError is returned by Estimate when the detected format's estimator
// failed. Detected names the format, e.g. "pdf" or "unknown".
type EstimateError struct {
	Detected string
	Err      error
}

func (e *EstimateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Detected, e.Err)
}

func (e *EstimateError) Unwrap() error {
	return e.Err
}

// Estimator estimates page counts with a fixed set of options. It is safe
// for concurrent use when its external counter is.
type Estimator struct {
	options Options
}

// New creates an Estimator. Options not set keep their defaults.
func New(opts ...Option) *Estimator {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Estimator{options: o}
}

// Options returns a copy of the estimator's settings.
func (e *Estimator) Options() Options {
	return e.options.clone()
}

// Estimate detects the format of data and estimates its page count.
// filename is only a hint and may be empty. ctx bounds the external PDF
// counter, if one is configured.
func (e *Estimator) Estimate(ctx context.Context, data []byte, filename string) (*model.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	f := format.Detect(filename, data)
	logging.Logger().Debug("format detected", "file", filename, "format", f.String(), "bytes", len(data))

	if err := ctx.Err(); err != nil {
		return nil, &EstimateError{Detected: f.String(), Err: err}
	}

	var (
		res *model.Result
		err error
	)
	switch f {
	case format.PDF:
		res, err = e.estimatePDF(ctx, data)
	case format.XLSX:
		res, err = xlsx.Estimate(data, e.options.rowsPerPage(), e.options.PageSize())
	case format.DOCX:
		res, err = docx.Estimate(data, e.options.textOptions())
	case format.PPTX:
		res, err = pptx.Estimate(data, e.options.PageSize())
	case format.HTML:
		res, err = htmldoc.Estimate(data, e.options.textOptions())
	case format.ODT:
		res, err = odt.Estimate(data, e.options.textOptions())
	case format.EPUB:
		res, err = epubdoc.Estimate(data, e.options.textOptions())
	case format.Text:
		res = textdoc.EstimateText(data, e.options.textOptions())
	case format.Markdown:
		res = textdoc.EstimateMarkdown(data, e.options.textOptions())
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &EstimateError{Detected: f.String(), Err: err}
	}
	return res, nil
}

// estimatePDF asks the external counter first and falls back to the
// built-in strategies on any failure.
func (e *Estimator) estimatePDF(ctx context.Context, data []byte) (*model.Result, error) {
	if e.options.counter != nil {
		r, err := pdfcount.CountExternal(ctx, e.options.counter, data)
		if err == nil {
			return fromPDF(r), nil
		}
		logging.Logger().Debug("external counter skipped", "error", err)
	}

	r, err := pdfcount.Extract(data)
	if err != nil {
		return nil, err
	}
	return fromPDF(r), nil
}

func fromPDF(r pdfcount.Result) *model.Result {
	res := model.NewResult(format.PDF.String())
	res.PageCount = r.PageCount
	if len(r.PageSizes) > 0 {
		res.PageSizes = append(res.PageSizes, r.PageSizes...)
	}
	res.Notes = append(res.Notes, r.Notes...)
	res.Strategy = r.Strategy.String()
	res.Verified = r.Verified()
	return res
}

// Estimate estimates the page count of data with a one-off Estimator.
func Estimate(data []byte, filename string, opts ...Option) (*model.Result, error) {
	return New(opts...).Estimate(context.Background(), data, filename)
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	res := pagecount.Must(pagecount.Estimate(data, "document.pdf"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
