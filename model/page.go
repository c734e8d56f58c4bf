package model

import "math"

// PageSize is the physical size of a page in millimetres.
type PageSize struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// PageSizeFromPoints converts a width and height in PDF points.
func PageSizeFromPoints(widthPt, heightPt float64) PageSize {
	return PageSize{WidthMM: MMFromPoints(widthPt), HeightMM: MMFromPoints(heightPt)}
}

// MMFromPoints converts PDF points (1/72 inch) to millimetres.
func MMFromPoints(pt float64) float64 {
	return pt / 72 * 25.4
}

// PointsFromMM converts millimetres to PDF points.
func PointsFromMM(mm float64) float64 {
	return mm / 25.4 * 72
}

// ApproxEqual reports whether both extents are within tolerance millimetres.
func (s PageSize) ApproxEqual(other PageSize, tolerance float64) bool {
	return math.Abs(s.WidthMM-other.WidthMM) <= tolerance &&
		math.Abs(s.HeightMM-other.HeightMM) <= tolerance
}
