package pagecount

import (
	"encoding/json"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/pdfcount"
	"github.com/tsawler/pagecount/textdoc"
	"github.com/tsawler/pagecount/xlsx"
)

// Options holds estimation settings. The JSON form is the one accepted by
// EstimateJSON:
//
//	{"default_paper": "Letter", "custom_paper_mm": [210, 297],
//	 "chars_per_page": 2000, "rows_per_page": 50}
//
// Zero values mean "use the default".
type Options struct {
	// DefaultPaper is "A4" or "Letter". Defaults to A4.
	DefaultPaper string `json:"default_paper,omitempty"`

	// CustomPaperMM is width and height in millimetres and wins over
	// DefaultPaper.
	CustomPaperMM *[2]float64 `json:"custom_paper_mm,omitempty"`

	// CharsPerPage drives the text, Markdown, HTML and EPUB estimates and the
	// DOCX and ODT fallbacks.
	CharsPerPage int `json:"chars_per_page,omitempty"`

	// RowsPerPage drives spreadsheet estimates.
	RowsPerPage int `json:"rows_per_page,omitempty"`

	counter pdfcount.ExternalCounter
}

// DefaultOptions returns the default estimation options.
func DefaultOptions() Options {
	return Options{
		DefaultPaper: model.A4.String(),
		CharsPerPage: textdoc.DefaultCharsPerPage,
		RowsPerPage:  xlsx.DefaultRowsPerPage,
	}
}

// ParseOptions decodes options from JSON. Empty or invalid input yields the
// defaults; fields that are absent keep their default value.
func ParseOptions(s string) Options {
	opts := DefaultOptions()
	if s == "" {
		return opts
	}
	var parsed Options
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return opts
	}
	if parsed.DefaultPaper != "" {
		opts.DefaultPaper = parsed.DefaultPaper
	}
	if parsed.CustomPaperMM != nil {
		opts.CustomPaperMM = parsed.CustomPaperMM
	}
	if parsed.CharsPerPage > 0 {
		opts.CharsPerPage = parsed.CharsPerPage
	}
	if parsed.RowsPerPage > 0 {
		opts.RowsPerPage = parsed.RowsPerPage
	}
	return opts
}

// PageSize returns the page size assumed for formats that do not declare
// one. A custom size with a non-positive side is ignored.
func (o Options) PageSize() model.PageSize {
	if c := o.CustomPaperMM; c != nil && c[0] > 0 && c[1] > 0 {
		return model.PageSize{WidthMM: c[0], HeightMM: c[1]}
	}
	paper, _ := model.ParsePaper(o.DefaultPaper)
	return paper.Size()
}

func (o Options) textOptions() textdoc.Options {
	return textdoc.Options{CharsPerPage: o.CharsPerPage, PageSize: o.PageSize()}
}

func (o Options) rowsPerPage() int {
	if o.RowsPerPage <= 0 {
		return xlsx.DefaultRowsPerPage
	}
	return o.RowsPerPage
}

// clone creates a deep copy of Options.
func (o Options) clone() Options {
	newOpts := o
	if o.CustomPaperMM != nil {
		c := *o.CustomPaperMM
		newOpts.CustomPaperMM = &c
	}
	return newOpts
}

// Option configures an Estimator.
type Option func(*Options)

// WithOptions replaces every setting except the external counter.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		counter := o.counter
		*o = opts.clone()
		o.counter = counter
	}
}

// WithPaper sets the default paper preset.
func WithPaper(p model.Paper) Option {
	return func(o *Options) {
		o.DefaultPaper = p.String()
		o.CustomPaperMM = nil
	}
}

// WithCustomPaperMM sets a custom paper size in millimetres.
func WithCustomPaperMM(widthMM, heightMM float64) Option {
	return func(o *Options) {
		o.CustomPaperMM = &[2]float64{widthMM, heightMM}
	}
}

// WithCharsPerPage sets the characters-per-page heuristic.
func WithCharsPerPage(n int) Option {
	return func(o *Options) {
		o.CharsPerPage = n
	}
}

// WithRowsPerPage sets the spreadsheet rows-per-page heuristic.
func WithRowsPerPage(n int) Option {
	return func(o *Options) {
		o.RowsPerPage = n
	}
}

// WithExternalCounter sets a counter consulted before the built-in PDF
// strategies. When it fails the built-in strategies run as usual.
func WithExternalCounter(c pdfcount.ExternalCounter) Option {
	return func(o *Options) {
		o.counter = c
	}
}
