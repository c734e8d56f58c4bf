package model

import "math"

// MaxBoxExtent bounds plausible page box extents in points (about 3.5 m).
const MaxBoxExtent = 10000.0

// Rect is a PDF rectangle given by its lower-left and upper-right corners.
type Rect struct {
	LLX, LLY float64
	URX, URY float64
}

// NewRect builds a Rect from a PDF box array. It returns false unless vals
// holds exactly four numbers.
func NewRect(vals []float64) (Rect, bool) {
	if len(vals) != 4 {
		return Rect{}, false
	}
	return Rect{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}, true
}

// Width returns the horizontal extent. Corners given in either order work.
func (r Rect) Width() float64 {
	return math.Abs(r.URX - r.LLX)
}

// Height returns the vertical extent.
func (r Rect) Height() float64 {
	return math.Abs(r.URY - r.LLY)
}

// Plausible reports whether both extents are positive and below MaxBoxExtent.
func (r Rect) Plausible() bool {
	w, h := r.Width(), r.Height()
	return w > 0 && h > 0 && w < MaxBoxExtent && h < MaxBoxExtent &&
		!math.IsNaN(w) && !math.IsNaN(h) && !math.IsInf(w, 0) && !math.IsInf(h, 0)
}

// Size converts the rectangle to millimetres.
func (r Rect) Size() PageSize {
	return PageSizeFromPoints(r.Width(), r.Height())
}
