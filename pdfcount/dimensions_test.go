package pdfcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pagecount/internal/pdftest"
	"github.com/tsawler/pagecount/model"
)

// fixedBoxes serves MediaBoxes from a slice; a nil entry has no box.
type fixedBoxes struct {
	media []*model.Rect
	crop  []*model.Rect
	calls int
}

func (f *fixedBoxes) PageBoxes(i int) (media, crop *model.Rect) {
	f.calls++
	if i < len(f.media) {
		media = f.media[i]
	}
	if i < len(f.crop) {
		crop = f.crop[i]
	}
	return media, crop
}

func rect(w, h float64) *model.Rect {
	return &model.Rect{URX: w, URY: h}
}

func TestSampleUniform(t *testing.T) {
	src := &fixedBoxes{media: []*model.Rect{rect(612, 792), rect(612.05, 792), rect(612, 791.95)}}
	sizes, notes := samplePageSizes(3, src)

	require.Len(t, sizes, 3)
	for _, s := range sizes {
		assert.InDelta(t, 215.9, s.WidthMM, 0.01)
		assert.InDelta(t, 279.4, s.HeightMM, 0.01)
	}
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "uniform size: 215.9 × 279.4 mm")
}

func TestSampleLimit(t *testing.T) {
	media := make([]*model.Rect, 50)
	for i := range media {
		media[i] = rect(595, 842)
	}
	src := &fixedBoxes{media: media}
	sizes, notes := samplePageSizes(50, src)

	assert.Len(t, sizes, 50)
	assert.Equal(t, 5, src.calls)
	assert.Contains(t, notes, "Page size sampled from first 5 pages")
}

func TestSampleLargeDocument(t *testing.T) {
	src := &fixedBoxes{media: []*model.Rect{rect(595, 842)}}
	sizes, notes := samplePageSizes(150, src)

	assert.Len(t, sizes, 150)
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, notes, "Performance optimization: Sampled first page only (large PDF)")
}

func TestSampleMixed(t *testing.T) {
	src := &fixedBoxes{media: []*model.Rect{rect(612, 792), rect(300, 500)}}
	sizes, notes := samplePageSizes(2, src)

	require.Len(t, sizes, 2)
	assert.InDelta(t, 105.83, sizes[1].WidthMM, 0.01)
	assert.InDelta(t, 176.39, sizes[1].HeightMM, 0.01)
	assert.Equal(t, []string{
		"PDF has 2 pages with mixed sizes",
		"Page 1: 215.9 × 279.4 mm",
		"Page 2: 105.8 × 176.4 mm",
	}, notes)
}

func TestSampleMixedManyPagesNoPerPageNotes(t *testing.T) {
	media := make([]*model.Rect, 30)
	for i := range media {
		media[i] = rect(612, 792)
	}
	media[1] = rect(792, 612)
	sizes, notes := samplePageSizes(30, &fixedBoxes{media: media})

	assert.Len(t, sizes, 30)
	assert.Equal(t, []string{"PDF has 30 pages with mixed sizes"}, notes)
}

func TestPageSizeFallbacks(t *testing.T) {
	src := &fixedBoxes{
		media: []*model.Rect{nil, rect(0, 0), rect(20000, 10), nil},
		crop:  []*model.Rect{rect(400, 600), rect(300, 300), nil, nil},
	}

	w, h := pageSizePoints(src, 0)
	assert.Equal(t, []float64{400, 600}, []float64{w, h})

	w, h = pageSizePoints(src, 1)
	assert.Equal(t, []float64{300, 300}, []float64{w, h}, "degenerate MediaBox falls back to CropBox")

	w, h = pageSizePoints(src, 2)
	assert.Equal(t, []float64{595, 842}, []float64{w, h}, "oversized MediaBox falls back to A4")

	w, h = pageSizePoints(src, 3)
	assert.Equal(t, []float64{595, 842}, []float64{w, h})
}

func TestSampleZeroPages(t *testing.T) {
	sizes, notes := samplePageSizes(0, &fixedBoxes{})
	assert.Empty(t, sizes)
	assert.Empty(t, notes)
}

func TestByteBoxes(t *testing.T) {
	data := pdftest.Classic(pdftest.FlatTree(pdftest.Letter, pdftest.Size{W: 300, H: 500}), "")
	b := newByteBoxes(data)

	media, crop := b.PageBoxes(0)
	require.NotNil(t, media)
	assert.Equal(t, 612.0, media.Width())
	assert.Nil(t, crop)

	media, _ = b.PageBoxes(1)
	require.NotNil(t, media)
	assert.Equal(t, 500.0, media.Height())

	media, _ = b.PageBoxes(5)
	assert.Nil(t, media)
}

func TestByteBoxesInherited(t *testing.T) {
	data := pdftest.Classic(pdftest.Uniform(3, pdftest.A4), "")
	b := newByteBoxes(data)

	for i := 0; i < 3; i++ {
		media, _ := b.PageBoxes(i)
		require.NotNil(t, media, "page %d", i)
		assert.Equal(t, 842.0, media.Height())
	}
}

func TestByteBoxesCropAndTypeVariants(t *testing.T) {
	data := []byte("%PDF-1.4\n" +
		"1 0 obj\n<</Type/Page/CropBox[0 0 200.5 300]>>\nendobj\n" +
		"2 0 obj\n<< /Type /PageLabel /MediaBox [0 0 1 1] >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /MediaBox [ -10 -10 .5e3 400 ] >>\nendobj\n")
	b := newByteBoxes(data)

	media, crop := b.PageBoxes(0)
	assert.Nil(t, media)
	require.NotNil(t, crop)
	assert.Equal(t, 200.5, crop.Width())

	// "/PageLabel" is not a page and ".5e3" does not parse
	media, _ = b.PageBoxes(1)
	assert.Nil(t, media)
	media, _ = b.PageBoxes(2)
	assert.Nil(t, media)
}

func TestBoxIn(t *testing.T) {
	tests := []struct {
		body string
		ok   bool
		w, h float64
	}{
		{"/MediaBox [0 0 612 792]", true, 612, 792},
		{"/MediaBox[0 0 595.28 841.89]", true, 595.28, 841.89},
		{"/MediaBox [612 792 0 0]", true, 612, 792},
		{"/MediaBox 5 0 R", false, 0, 0},
		{"/MediaBox [0 0 612]", false, 0, 0},
		{"/MediaBox [0 0 612 792", false, 0, 0},
		{"/MediaBox [0 0 0 792]", false, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			r := boxIn([]byte(tc.body), keyMediaBox)
			if !tc.ok {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.InDelta(t, tc.w, r.Width(), 1e-9)
			assert.InDelta(t, tc.h, r.Height(), 1e-9)
		})
	}
}
