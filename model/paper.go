package model

import "strings"

// Paper names a preset paper size.
type Paper int

const (
	// A4 is 210 x 297 mm and the default paper.
	A4 Paper = iota
	// Letter is US Letter, 8.5 x 11 in.
	Letter
)

// String returns the lowercase preset name.
func (p Paper) String() string {
	switch p {
	case Letter:
		return "letter"
	default:
		return "a4"
	}
}

// Size returns the preset's dimensions.
func (p Paper) Size() PageSize {
	switch p {
	case Letter:
		return PageSize{WidthMM: 215.9, HeightMM: 279.4}
	default:
		return PageSize{WidthMM: 210, HeightMM: 297}
	}
}

// ParsePaper maps a preset name to a Paper. Unknown names return A4 and false.
func ParsePaper(name string) (Paper, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "a4":
		return A4, true
	case "letter", "us-letter", "usletter":
		return Letter, true
	}
	return A4, false
}
