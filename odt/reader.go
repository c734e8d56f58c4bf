// Package odt reads OpenDocument Text documents far enough to report how
// many pages they print on.
package odt

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/textdoc"
)

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 256 << 20

// ErrPartTooLarge is returned when an archive member decompresses past the
// reader's size limit.
var ErrPartTooLarge = errors.New("odt: part too large")

// Reader provides access to ODT document content held in memory.
type Reader struct {
	files     map[string]*zip.File
	docStyles *stylesXML
	meta      *metaXML

	text       string
	pageBreaks int
	softBreaks int
	images     int
}

// OpenBytes parses an ODT document from data.
func OpenBytes(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	// Validate required files exist
	if err := r.validate(); err != nil {
		return nil, err
	}

	// Parse styles.xml first (optional but usually present)
	r.parseStyles()

	// Parse content.xml (main document content)
	if err := r.parseContent(); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}

	// Parse metadata (optional)
	r.parseMetadata()

	return r, nil
}

// validate checks that required ODT files exist.
func (r *Reader) validate() error {
	required := []string{
		"content.xml",
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

// parseStyles parses styles.xml.
func (r *Reader) parseStyles() {
	data, err := r.getFileContent("styles.xml")
	if err != nil {
		return
	}
	styles := &stylesXML{}
	if xml.Unmarshal(data, styles) == nil {
		r.docStyles = styles
	}
}

// parseMetadata parses the meta.xml file.
func (r *Reader) parseMetadata() {
	data, err := r.getFileContent("meta.xml")
	if err != nil {
		return
	}
	meta := &metaXML{}
	if xml.Unmarshal(data, meta) == nil {
		r.meta = meta
	}
}

// parseContent walks content.xml, collecting the body text and counting page
// breaks and images. Automatic styles precede the body, so break styles are
// known by the time paragraphs are reached.
func (r *Reader) parseContent() error {
	data, err := r.getFileContent("content.xml")
	if err != nil {
		return err
	}

	var named []styleDefXML
	if r.docStyles != nil && r.docStyles.Styles != nil {
		named = r.docStyles.Styles.Styles
	}
	var automatic styleListXML
	breaks := newBreakStyles(named)

	decoder := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	var inBody bool
	var open []pageBreak // enclosing paragraphs and headings
	paragraphs := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Space == nsOffice {
				switch t.Name.Local {
				case "automatic-styles":
					if err := decoder.DecodeElement(&automatic, &t); err != nil {
						return err
					}
					breaks = newBreakStyles(named, automatic.Styles)
				case "text":
					inBody = true
				case "annotation":
					if err := decoder.Skip(); err != nil {
						return err
					}
				}
				continue
			}
			if !inBody {
				continue
			}

			switch t.Name.Space {
			case nsText:
				switch t.Name.Local {
				case "p", "h":
					pb := breaks.lookup(attr(t, "style-name"))
					if len(open) == 0 {
						if paragraphs > 0 {
							sb.WriteByte('\n')
							if pb.before {
								r.pageBreaks++
							}
						}
						paragraphs++
					}
					open = append(open, pb)
				case "s":
					n, err := strconv.Atoi(attr(t, "c"))
					if err != nil || n < 1 {
						n = 1
					}
					sb.WriteString(strings.Repeat(" ", min(n, 1024)))
				case "tab":
					sb.WriteByte('\t')
				case "line-break":
					sb.WriteByte('\n')
				case "soft-page-break":
					r.softBreaks++
				}
			case nsDraw:
				if t.Name.Local == "image" {
					r.images++
				}
			}

		case xml.EndElement:
			if t.Name.Space == nsOffice && t.Name.Local == "text" {
				inBody = false
				continue
			}
			if t.Name.Space == nsText && (t.Name.Local == "p" || t.Name.Local == "h") && len(open) > 0 {
				pb := open[len(open)-1]
				open = open[:len(open)-1]
				if len(open) == 0 && pb.after {
					r.pageBreaks++
				}
			}

		case xml.CharData:
			if inBody && len(open) > 0 {
				sb.WriteString(whitespace.Replace(string(t)))
			}
		}
	}

	r.text = sb.String()
	return nil
}

// whitespace maps the XML white space characters ODF treats as spaces.
var whitespace = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// Text returns the body text, one line per top-level paragraph or heading.
func (r *Reader) Text() string {
	return r.text
}

// Title returns the document title from meta.xml, if any.
func (r *Reader) Title() string {
	if r.meta == nil || r.meta.Meta == nil {
		return ""
	}
	return strings.TrimSpace(r.meta.Meta.Title)
}

// DeclaredPages returns the page count the authoring application saved in
// meta.xml. ok is false when the value is missing or not positive.
func (r *Reader) DeclaredPages() (pages int, ok bool) {
	if r.meta == nil || r.meta.Meta == nil || r.meta.Meta.Statistics == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.meta.Meta.Statistics.PageCount))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PageBreaks returns the number of page breaks forced by paragraph styles.
func (r *Reader) PageBreaks() int {
	return r.pageBreaks
}

// SoftPageBreaks returns the number of page boundaries recorded by the
// application's last layout.
func (r *Reader) SoftPageBreaks() int {
	return r.softBreaks
}

// Images returns the number of images in the body.
func (r *Reader) Images() int {
	return r.images
}

// PageSize returns the page size of the default page layout.
func (r *Reader) PageSize() (model.PageSize, bool) {
	return r.docStyles.pageSize()
}

// Estimate opens the document in data and estimates its printed page count.
func Estimate(data []byte, opts textdoc.Options) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Estimate(opts), nil
}

// Estimate reports the page count saved in the document statistics when
// present. Otherwise pages are estimated from the text length, with at
// least one page per recorded page boundary. The document's own page size
// wins over opts.PageSize.
func (r *Reader) Estimate(opts textdoc.Options) *model.Result {
	res := model.NewResult("odt")

	if pages, ok := r.DeclaredPages(); ok {
		res.PageCount = pages
		res.AddNote(fmt.Sprintf("Page count from document properties: %d", pages))
	} else {
		chars := utf8.RuneCountInString(r.text)
		cpp := opts.CharsPerPage
		if cpp <= 0 {
			cpp = textdoc.DefaultCharsPerPage
		}
		res.PageCount = model.PagesFor(chars, cpp)
		if laid := r.pageBreaks + r.softBreaks + 1; chars > 0 && laid > res.PageCount {
			res.PageCount = laid
			res.AddNote(fmt.Sprintf("Page breaks: %d explicit, %d from last layout", r.pageBreaks, r.softBreaks))
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
		res.AddNote(fmt.Sprintf("Page size from page layout: %.1f × %.1f mm", size.WidthMM, size.HeightMM))
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
