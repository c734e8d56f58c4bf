// Package epubdoc estimates page counts for EPUB publications from the text
// of their spine documents.
package epubdoc

// Package represents the parsed OPF document.
type Package struct {
	Metadata Metadata
	Manifest map[string]ManifestItem // keyed by ID
	Spine    []SpineItem
	Version  string // "2.0" or "3.0"
}

// Metadata contains the Dublin Core fields used in notes.
type Metadata struct {
	Title    string
	Creator  []string // Multiple authors possible
	Language string
}

// ManifestItem represents a file in the EPUB.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string // "nav", "cover-image", etc.
}

// SpineItem represents a content document in reading order.
type SpineItem struct {
	IDRef  string
	Linear bool // true if part of main reading order
}

// Chapter is the extracted content of one spine item.
type Chapter struct {
	ID     string
	Title  string
	Index  int
	Href   string
	Linear bool
	Text   string
	Images int
}
