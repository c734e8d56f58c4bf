package pdfcount

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/scan"
)

const (
	// documents with more pages are sampled from the first page only
	largeDocument = 100

	sampleLimit      = 5
	sizeTolerancePt  = 0.1
	perPageNoteLimit = 20

	defaultWidthPt  = 595.0
	defaultHeightPt = 842.0
)

// PageBoxSource reports the MediaBox and CropBox of a page by 0-based
// index. Either may be nil.
type PageBoxSource interface {
	PageBoxes(index int) (media, crop *model.Rect)
}

// pageSizePoints picks MediaBox, then CropBox, then A4.
func pageSizePoints(src PageBoxSource, index int) (w, h float64) {
	media, crop := src.PageBoxes(index)
	if media != nil && media.Plausible() {
		return media.Width(), media.Height()
	}
	if crop != nil && crop.Plausible() {
		return crop.Width(), crop.Height()
	}
	return defaultWidthPt, defaultHeightPt
}

// samplePageSizes returns one size per page plus notes. A few pages are
// sampled first; when they agree the size is replicated, otherwise every
// page is read.
func samplePageSizes(count int, src PageBoxSource) ([]model.PageSize, []string) {
	if count <= 0 {
		return nil, nil
	}

	sample := min(count, sampleLimit)
	if count > largeDocument {
		sample = 1
	}

	firstW, firstH := pageSizePoints(src, 0)
	uniform := true
	for i := 1; i < sample; i++ {
		w, h := pageSizePoints(src, i)
		if abs(w-firstW) >= sizeTolerancePt || abs(h-firstH) >= sizeTolerancePt {
			uniform = false
			break
		}
	}

	var notes []string
	if uniform {
		size := model.PageSizeFromPoints(firstW, firstH)
		notes = append(notes, fmt.Sprintf("PDF has %d pages (uniform size: %.1f × %.1f mm)", count, size.WidthMM, size.HeightMM))
		switch {
		case count > largeDocument:
			notes = append(notes, "Performance optimization: Sampled first page only (large PDF)")
		case sample < count:
			notes = append(notes, fmt.Sprintf("Page size sampled from first %d pages", sample))
		}
		sizes := make([]model.PageSize, count)
		for i := range sizes {
			sizes[i] = size
		}
		return sizes, notes
	}

	notes = append(notes, fmt.Sprintf("PDF has %d pages with mixed sizes", count))
	sizes := make([]model.PageSize, count)
	for i := range sizes {
		sizes[i] = model.PageSizeFromPoints(pageSizePoints(src, i))
		if count <= perPageNoteLimit {
			notes = append(notes, fmt.Sprintf("Page %d: %.1f × %.1f mm", i+1, sizes[i].WidthMM, sizes[i].HeightMM))
		}
	}
	return sizes, notes
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var (
	keyType     = []byte("/Type")
	keyPage     = []byte("/Page")
	keyMediaBox = []byte("/MediaBox")
	keyCropBox  = []byte("/CropBox")
	kwObj       = []byte("obj")
)

// byteBoxes finds page boxes by scanning for /Type /Page objects in file
// order. Pages without their own box inherit the MediaBox of the first
// /Type /Pages object. Indirect box arrays are not followed.
type byteBoxes struct {
	data      []byte
	pages     [][]byte // object bodies, lazily collected
	inherited *model.Rect
	scanned   bool
}

func newByteBoxes(data []byte) *byteBoxes {
	return &byteBoxes{data: data}
}

func (b *byteBoxes) PageBoxes(index int) (media, crop *model.Rect) {
	b.collect()
	if index < 0 || index >= len(b.pages) {
		return b.inherited, nil
	}
	body := b.pages[index]
	media = boxIn(body, keyMediaBox)
	if media == nil {
		media = b.inherited
	}
	return media, boxIn(body, keyCropBox)
}

// found reports whether the scan saw any MediaBox or CropBox, own or
// inherited.
func (b *byteBoxes) found() bool {
	b.collect()
	if b.inherited != nil {
		return true
	}
	for _, body := range b.pages {
		if boxIn(body, keyMediaBox) != nil || boxIn(body, keyCropBox) != nil {
			return true
		}
	}
	return false
}

func (b *byteBoxes) collect() {
	if b.scanned {
		return
	}
	b.scanned = true

	h := b.data
	from := 0
	for {
		idx, ok := scan.Find(h, keyType, from)
		if !ok {
			return
		}
		from = idx + 1

		start := scan.SkipWhitespace(h, idx+len(keyType))
		end := start + len(keyPage)
		if end > len(h) || !bytes.Equal(h[start:end], keyPage) {
			continue
		}
		isPages := end < len(h) && h[end] == 's'
		if !isPages && end < len(h) && isNameByte(h[end]) {
			continue
		}

		body := enclosingObject(h, idx)
		if body == nil {
			continue
		}
		if isPages {
			if b.inherited == nil {
				b.inherited = boxIn(body, keyMediaBox)
			}
			continue
		}
		b.pages = append(b.pages, body)
	}
}

// enclosingObject returns the body of the object containing pos: from its
// "obj" keyword to the next endobj, within objectWindow bytes either way.
func enclosingObject(h []byte, pos int) []byte {
	lo := max(pos-objectWindow, 0)
	idx := bytes.LastIndex(h[lo:pos], kwObj)
	if idx < 0 {
		return nil
	}
	start := lo + idx
	if start >= 3 && bytes.Equal(h[start-3:start], []byte("end")) {
		// pos is between objects
		return nil
	}
	body := scan.Window(h, start+len(kwObj), 2*objectWindow)
	if end, ok := scan.Find(body, kwEndObj, 0); ok {
		body = body[:end]
	}
	return body
}

// boxIn parses "<key> [a b c d]" from body.
func boxIn(body, key []byte) *model.Rect {
	idx, ok := scan.Find(body, key, 0)
	if !ok {
		return nil
	}
	pos := scan.SkipWhitespace(body, idx+len(key))
	if pos >= len(body) || body[pos] != '[' {
		return nil
	}
	end, ok := scan.Find(body, []byte("]"), pos)
	if !ok {
		return nil
	}

	var vals []float64
	pos++
	for len(vals) < 4 {
		pos = scan.SkipWhitespace(body, pos)
		v, next, ok := scan.ParseFloat(body, pos, end)
		if !ok {
			return nil
		}
		vals = append(vals, v)
		pos = next
	}
	r, ok := model.NewRect(vals)
	if !ok || !r.Plausible() {
		return nil
	}
	return &r
}

func isNameByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || scan.IsDigit(b)
}
