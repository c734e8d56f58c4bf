package pdfcount

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pagecount/internal/pdftest"
)

func heuristic(s Strategy) countScan {
	for _, h := range heuristics {
		if h.strategy == s {
			return h
		}
	}
	panic("no heuristic for " + s.String())
}

func TestHeuristicOrder(t *testing.T) {
	want := []Strategy{TypePagesProximity, GlobalMaxCount, ExpandedWindow, CountWithoutSlash}
	require.Len(t, heuristics, len(want))
	for i, h := range heuristics {
		assert.Equal(t, want[i], h.strategy)
	}
}

// nestedTree is a root of 5 pages split into subtrees of 3 and 2.
var nestedTree = []string{
	"<< /Type /Catalog /Pages 2 0 R >>",
	"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 5 >>",
	"<< /Type /Pages /Parent 2 0 R /Kids [5 0 R 6 0 R 7 0 R] /Count 3 >>",
	"<< /Type /Pages /Parent 2 0 R /Kids [8 0 R 9 0 R] /Count 2 >>",
	"<< /Type /Page /Parent 3 0 R >>",
	"<< /Type /Page /Parent 3 0 R >>",
	"<< /Type /Page /Parent 3 0 R >>",
	"<< /Type /Page /Parent 4 0 R >>",
	"<< /Type /Page /Parent 4 0 R >>",
}

func TestGlobalMaxCountNested(t *testing.T) {
	data := pdftest.Classic(nestedTree, "")
	n, err := heuristic(GlobalMaxCount).run(data)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestTypePagesProximity(t *testing.T) {
	data := pdftest.Classic(nestedTree, "")
	n, err := heuristic(TypePagesProximity).run(data)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = heuristic(TypePagesProximity).run([]byte("/Count 3"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTypePagesProximityWindow(t *testing.T) {
	far := "/Pages" + strings.Repeat(" ", 2100) + "/Count 8"
	_, err := heuristic(TypePagesProximity).run([]byte(far))
	assert.ErrorIs(t, err, ErrNotFound)

	// the expanded window reaches it
	n, err := heuristic(ExpandedWindow).run([]byte(far))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	before := "/Count 6" + strings.Repeat(" ", 200) + "/Pages"
	n, err = heuristic(TypePagesProximity).run([]byte(before))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestExpandedWindowFirstCount(t *testing.T) {
	// an outline /Count later in the window does not replace the first one
	data := []byte("/Pages /Count 4 " + strings.Repeat(" ", 3000) + "/Outlines /Count 90")
	n, err := heuristic(ExpandedWindow).run(data)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// separate windows still compete
	data = []byte("/Pages /Count 4" + strings.Repeat(" ", 9000) + "/Pages /Count 11")
	n, err = heuristic(ExpandedWindow).run(data)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestHeuristicTolerance(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		in       string
		want     int
	}{
		{"brackets", GlobalMaxCount, "<< /Count [12] >>", 12},
		{"parens", GlobalMaxCount, "/Count (7)", 7},
		{"colon not tolerated", GlobalMaxCount, "/Count: 9 /Count 2", 2},
		{"colon in expanded window", ExpandedWindow, "/Pages /Count: 9", 9},
		{"bare count", CountWithoutSlash, "Count 14", 14},
		{"bare after slash", CountWithoutSlash, "/Count:21", 21},
		{"bare after space", CountWithoutSlash, "x Count 3", 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := heuristic(tc.strategy).run([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestCountWithoutSlashBoundary(t *testing.T) {
	// "PageCount" is not preceded by whitespace or '/'
	_, err := heuristic(CountWithoutSlash).run([]byte("PageCount 40"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeuristicsIgnoreZeroAndOverflow(t *testing.T) {
	inputs := []string{
		"/Pages /Count 0",
		"/Pages /Count 1000001",
		"/Pages /Count 99999999999999999999999999",
		"/Pages /Count -4",
	}
	for _, in := range inputs {
		for _, h := range heuristics {
			t.Run(h.strategy.String()+"/"+in, func(t *testing.T) {
				_, err := h.run([]byte(in))
				assert.ErrorIs(t, err, ErrNotFound)
			})
		}
	}

	n, err := heuristic(GlobalMaxCount).run([]byte("/Count 1000000"))
	require.NoError(t, err)
	assert.Equal(t, MaxPageCount, n)
}

func TestOutlineCountMisleads(t *testing.T) {
	// an outline /Count larger than the page count wins; known limitation
	data := []byte("<< /Type /Outlines /Count 50 >> << /Type /Pages /Count 3 >>")
	n, err := heuristic(GlobalMaxCount).run(data)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestHeuristicsTotal(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("/Pages"),
		[]byte("/Count"),
		[]byte("Count"),
		bytes.Repeat([]byte("/Pages /Count "), 50),
		[]byte("/Count 12"),
	}
	for _, in := range inputs {
		for _, h := range heuristics {
			assert.NotPanics(t, func() { h.run(in) })
		}
	}
}
