// Package docx reads Word (Office Open XML) documents far enough to report
// how many pages they print on.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/textdoc"
)

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 256 << 20

// ErrPartTooLarge is returned when an archive member decompresses past the
// reader's size limit.
var ErrPartTooLarge = errors.New("docx: part too large")

// Reader provides access to DOCX document content held in memory.
type Reader struct {
	files     map[string]*zip.File
	document  *documentXML
	coreProps *corePropertiesXML
	appProps  *appPropertiesXML

	text       string
	pageBreaks int
	images     int
}

// OpenBytes parses a DOCX document from data.
func OpenBytes(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	if err := r.parseDocument(); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	// Metadata is optional
	r.parseCoreProperties()
	r.parseAppProperties()

	return r, nil
}

// validate checks that required DOCX files exist.
func (r *Reader) validate() error {
	required := []string{
		"[Content_Types].xml",
		"word/document.xml",
	}
	for _, name := range required {
		if r.files[name] == nil {
			return fmt.Errorf("missing required file: %s", name)
		}
	}
	return nil
}

// getFileContent reads the content of a file from the ZIP archive.
func (r *Reader) getFileContent(name string) ([]byte, error) {
	f := r.files[name]
	if f == nil {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, name)
	}
	return data, nil
}

// parseDocument parses the main document content.
func (r *Reader) parseDocument() error {
	data, err := r.getFileContent("word/document.xml")
	if err != nil {
		return err
	}

	r.document = &documentXML{}
	if err := xml.Unmarshal(data, r.document); err != nil {
		return fmt.Errorf("unmarshaling document.xml: %w", err)
	}

	r.processBody()
	return nil
}

// parseCoreProperties parses Dublin Core metadata.
func (r *Reader) parseCoreProperties() {
	data, err := r.getFileContent("docProps/core.xml")
	if err != nil {
		return
	}

	props := &corePropertiesXML{}
	if xml.Unmarshal(data, props) == nil {
		r.coreProps = props
	}
}

// parseAppProperties parses application metadata.
func (r *Reader) parseAppProperties() {
	data, err := r.getFileContent("docProps/app.xml")
	if err != nil {
		return
	}

	props := &appPropertiesXML{}
	if xml.Unmarshal(data, props) == nil {
		r.appProps = props
	}
}

// processBody flattens the body into text, one line per paragraph, and
// counts hard page breaks and drawings on the way.
func (r *Reader) processBody() {
	if r.document == nil || r.document.Body == nil {
		return
	}

	var lines []string
	body := r.document.Body
	for _, p := range body.Paragraphs {
		lines = append(lines, r.processParagraph(p))
	}
	for _, tbl := range body.Tables {
		lines = r.processTable(tbl, lines)
	}
	r.text = strings.Join(lines, "\n")
}

func (r *Reader) processTable(tbl tableXML, lines []string) []string {
	for _, row := range tbl.Rows {
		for _, cell := range row.Cells {
			for _, p := range cell.Paragraphs {
				lines = append(lines, r.processParagraph(p))
			}
			for _, nested := range cell.Tables {
				lines = r.processTable(nested, lines)
			}
		}
	}
	return lines
}

// processParagraph returns the text of a paragraph.
func (r *Reader) processParagraph(p paragraphXML) string {
	if p.Properties.PageBreakBefore != nil {
		r.pageBreaks++
	}

	var text strings.Builder
	for _, run := range p.Runs {
		text.WriteString(r.extractRunText(run))
	}
	for _, link := range p.Hyperlinks {
		for _, run := range link.Runs {
			text.WriteString(r.extractRunText(run))
		}
	}
	return text.String()
}

// extractRunText extracts text from a run element.
func (r *Reader) extractRunText(run runXML) string {
	var parts []string

	for _, t := range run.Text {
		parts = append(parts, t.Value)
	}

	for _, sym := range run.Symbols {
		if c, err := strconv.ParseUint(sym.Char, 16, 32); err == nil {
			parts = append(parts, string(rune(c)))
		}
	}

	for _, ac := range run.AlternateContent {
		for _, t := range ac.Fallback.Text {
			parts = append(parts, t.Value)
		}
	}

	// Handle tab characters
	for range run.Tabs {
		parts = append(parts, "\t")
	}

	// Handle breaks
	for _, br := range run.Breaks {
		if br.Type == "page" {
			r.pageBreaks++
		}
		parts = append(parts, "\n")
	}

	r.images += len(run.Drawing)

	return strings.Join(parts, "")
}

// Text returns the document body text, one line per paragraph. Table cell
// paragraphs follow the body paragraphs.
func (r *Reader) Text() string {
	return r.text
}

// Title returns the document title from the core properties, if any.
func (r *Reader) Title() string {
	if r.coreProps == nil {
		return ""
	}
	return strings.TrimSpace(r.coreProps.Title)
}

// DeclaredPages returns the page count the authoring application saved in
// docProps/app.xml. ok is false when the value is missing or not positive.
func (r *Reader) DeclaredPages() (pages int, ok bool) {
	if r.appProps == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.appProps.Pages))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PageBreaks returns the number of explicit page breaks in the body.
func (r *Reader) PageBreaks() int {
	return r.pageBreaks
}

// Images returns the number of drawings anchored in the body.
func (r *Reader) Images() int {
	return r.images
}

// PageSize returns the page size of the final section, falling back to the
// first section that declares one.
func (r *Reader) PageSize() (model.PageSize, bool) {
	if r.document == nil || r.document.Body == nil {
		return model.PageSize{}, false
	}
	body := r.document.Body
	if size, ok := sectionSize(body.SectPr); ok {
		return size, true
	}
	for _, p := range body.Paragraphs {
		if size, ok := sectionSize(p.Properties.SectPr); ok {
			return size, true
		}
	}
	return model.PageSize{}, false
}

// sectionSize converts a w:pgSz given in twips to millimetres.
func sectionSize(s *sectPrXML) (model.PageSize, bool) {
	if s == nil || s.PgSz == nil {
		return model.PageSize{}, false
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(s.PgSz.W), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(s.PgSz.H), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return model.PageSize{}, false
	}
	return model.PageSizeFromPoints(w/20, h/20), true
}

// Estimate opens the document in data and estimates its printed page count.
func Estimate(data []byte, opts textdoc.Options) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Estimate(opts), nil
}

// Estimate reports the page count saved by the authoring application when
// present. Otherwise pages are estimated from the text length, with at
// least one page per explicit page break. The document's own page size wins
// over opts.PageSize.
func (r *Reader) Estimate(opts textdoc.Options) *model.Result {
	res := model.NewResult("docx")

	if pages, ok := r.DeclaredPages(); ok {
		res.PageCount = pages
		res.AddNote(fmt.Sprintf("Page count from document properties: %d", pages))
	} else {
		chars := len([]rune(r.text))
		cpp := opts.CharsPerPage
		if cpp <= 0 {
			cpp = textdoc.DefaultCharsPerPage
		}
		res.PageCount = model.PagesFor(chars, cpp)
		if chars > 0 && r.pageBreaks+1 > res.PageCount {
			res.PageCount = r.pageBreaks + 1
			res.AddNote(fmt.Sprintf("Explicit page breaks: %d", r.pageBreaks))
		}
		res.AddNote(fmt.Sprintf("Page count estimated from text; chars: %d, chars_per_page: %d", chars, cpp))
	}

	if title := r.Title(); title != "" {
		res.AddNote("Title: " + title)
	}
	if r.images > 0 {
		res.AddNote(fmt.Sprintf("Document contains %d images", r.images))
	}

	size, ok := r.PageSize()
	if ok {
		res.AddNote(fmt.Sprintf("Page size from section properties: %.1f × %.1f mm", size.WidthMM, size.HeightMM))
	} else {
		size = opts.PageSize
		if size.WidthMM <= 0 || size.HeightMM <= 0 {
			size = model.A4.Size()
		}
	}

	if res.PageCount == 0 {
		res.AddNote("Document appears empty; returning 0 pages.")
	}
	res.FillPageSizes(size)
	return res
}
