package model

// Result is a page estimate for one document.
type Result struct {
	PageCount int        `json:"page_count"`
	PageSizes []PageSize `json:"page_sizes"`
	Notes     []string   `json:"notes"`

	// Format is the detected format name, e.g. "pdf" or "xlsx".
	Format string `json:"-"`

	// Strategy names the PDF strategy that produced the count. Empty for
	// other formats.
	Strategy string `json:"-"`

	// Verified is true when the count came from a structural walk rather
	// than a pattern-matching heuristic.
	Verified bool `json:"-"`
}

// NewResult creates an empty result for the named format.
func NewResult(format string) *Result {
	return &Result{
		Format:    format,
		PageSizes: make([]PageSize, 0),
		Notes:     make([]string, 0),
	}
}

// AddNote appends a note.
func (r *Result) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// FillPageSizes sets one copy of size per page, replacing any previous sizes.
func (r *Result) FillPageSizes(size PageSize) {
	if r.PageCount <= 0 {
		r.PageSizes = make([]PageSize, 0)
		return
	}
	sizes := make([]PageSize, r.PageCount)
	for i := range sizes {
		sizes[i] = size
	}
	r.PageSizes = sizes
}

// PagesFor returns ceil(units/perPage), the number of pages needed to hold
// units of content. A non-positive perPage is treated as 1.
func PagesFor(units, perPage int) int {
	if units <= 0 {
		return 0
	}
	if perPage <= 0 {
		perPage = 1
	}
	return (units + perPage - 1) / perPage
}
