package pdfcount

import (
	"context"
	"fmt"

	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/model"
)

// ExternalCount is the answer of an ExternalCounter. WidthPt and HeightPt
// describe the first page in points; zero means unknown.
type ExternalCount struct {
	PageCount int
	WidthPt   float64
	HeightPt  float64
}

// ExternalCounter is a higher-fidelity renderer consulted before Extract.
// Implementations must not modify data.
type ExternalCounter interface {
	CountPages(ctx context.Context, data []byte) (ExternalCount, error)
}

// CountExternal asks counter for the page count of data and converts the
// answer into a Result sized from the reported first page. Any failure,
// including an implausible count or a panic in the counter, is returned as
// an error so the caller can fall back to Extract.
func CountExternal(ctx context.Context, counter ExternalCounter, data []byte) (res Result, err error) {
	if counter == nil {
		return Result{}, ErrExternalUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%w: panic: %v", ErrExternalUnavailable, r)
		}
	}()

	c, err := counter.CountPages(ctx, data)
	if err != nil {
		logging.Logger().Debug("external counter failed", "error", err)
		return Result{}, fmt.Errorf("external counter: %w", err)
	}
	switch {
	case c.PageCount <= 0:
		return Result{}, fmt.Errorf("external counter: %w", ErrNotFound)
	case c.PageCount > MaxPageCount:
		return Result{}, fmt.Errorf("external counter: %w: %d pages", ErrOverflow, c.PageCount)
	}

	w, h := c.WidthPt, c.HeightPt
	if w <= 0 || h <= 0 {
		w, h = defaultWidthPt, defaultHeightPt
	}
	size := model.PageSizeFromPoints(w, h)

	res = Result{
		PageCount: c.PageCount,
		PageSizes: make([]model.PageSize, c.PageCount),
		Strategy:  External,
	}
	for i := range res.PageSizes {
		res.PageSizes[i] = size
	}
	res.Notes = []string{
		fmt.Sprintf("PDF has %d pages (dimensions: %.1f × %.1f mm)", c.PageCount, size.WidthMM, size.HeightMM),
		"Page count from external renderer",
	}
	logging.Logger().Debug("page count found", "strategy", External.String(), "count", c.PageCount)
	return res, nil
}
