// Package model defines the format-neutral page estimate returned by every
// reader in pagecount.
//
// # Results
//
// A [Result] carries the page count, one [PageSize] per page when the format
// has a physical page size, and human-readable notes describing how the
// estimate was reached:
//
//	res := model.NewResult(format)
//	res.PageCount = 3
//	res.FillPageSizes(model.A4.Size())
//	res.AddNote("chars: 4200, chars_per_page: 1800")
//
// # Geometry
//
// PDF page boxes are read as [Rect] values (lower-left, upper-right in PDF
// points). [MMFromPoints] converts to millimetres using 72 points per inch.
//
// # Paper
//
// [Paper] presets cover A4 and US Letter; custom sizes are plain [PageSize]
// values.
package model
