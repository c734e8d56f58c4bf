// Package pages walks the PDF page tree.
//
// The tree is followed from the catalog's /Pages node down through /Kids to
// the leaves, which are counted in document order:
//
//	tree := pages.NewPageTree(root, resolver)
//	n, err := tree.Count()
//
// Each [Page] keeps its ancestor chain so inheritable attributes such as
// MediaBox and CropBox resolve through any number of levels. The walk
// detects cycles and caps depth at [MaxTreeDepth].
package pages
