package epubdoc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/pagecount/htmldoc"
	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/textdoc"
)

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 256 << 20

// Reader-related errors.
var (
	ErrInvalidArchive  = errors.New("epub: invalid or corrupted archive")
	ErrInvalidMimetype = errors.New("epub: invalid mimetype (not an EPUB)")
	ErrMissingContent  = errors.New("epub: referenced content file not found")
	ErrPartTooLarge    = errors.New("epub: part too large")
)

// Reader provides access to EPUB content held in memory.
type Reader struct {
	files    map[string]*zip.File
	pkg      *Package
	baseDir  string // Directory containing OPF (for resolving relative paths)
	chapters []*Chapter
	images   int // image spine items
}

// OpenBytes parses an EPUB publication from data.
func OpenBytes(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ErrInvalidArchive
	}

	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

// init parses the EPUB structure and loads the spine.
func (r *Reader) init() error {
	// The mimetype member is optional, but a wrong one means another format.
	if err := r.validateMimetype(); err != nil {
		return err
	}

	if err := r.checkForDRM(); err != nil {
		return err
	}

	opfPath, err := r.parseContainer()
	if err != nil {
		return err
	}

	pkg, baseDir, err := r.parseOPF(opfPath)
	if err != nil {
		return err
	}
	r.pkg = pkg
	r.baseDir = baseDir

	return r.loadChapters()
}

func (r *Reader) validateMimetype() error {
	if r.files["mimetype"] == nil {
		return nil
	}
	data, err := r.getFileContent("mimetype")
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}
	return nil
}

// loadChapters loads all spine items as chapters. Items missing from the
// manifest or the archive are skipped.
func (r *Reader) loadChapters() error {
	r.chapters = make([]*Chapter, 0, len(r.pkg.Spine))

	for i, spineItem := range r.pkg.Spine {
		item, ok := r.pkg.Manifest[spineItem.IDRef]
		if !ok {
			continue
		}
		if strings.HasPrefix(item.MediaType, "image/") {
			r.images++
			continue
		}

		href := r.resolveHref(item.Href)
		content, err := r.readFile(href)
		if errors.Is(err, ErrPartTooLarge) {
			return err
		}
		if err != nil {
			continue
		}

		doc, err := htmldoc.OpenBytes(content)
		if err != nil {
			continue
		}
		r.chapters = append(r.chapters, &Chapter{
			ID:     item.ID,
			Title:  strings.TrimSpace(doc.Title()),
			Index:  i,
			Href:   href,
			Linear: spineItem.Linear,
			Text:   doc.Text(),
			Images: doc.Images(),
		})
	}

	if len(r.chapters) == 0 && r.images == 0 {
		return ErrEmptySpine
	}
	return nil
}

// resolveHref resolves a relative href against the OPF base directory.
func (r *Reader) resolveHref(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}

	if r.baseDir == "" {
		return href
	}
	return path.Join(r.baseDir, href)
}

// readFile reads a content document, reporting ErrMissingContent when the
// manifest points outside the archive.
func (r *Reader) readFile(name string) ([]byte, error) {
	if r.files[name] == nil {
		return nil, ErrMissingContent
	}
	return r.getFileContent(name)
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

// Metadata returns the EPUB metadata.
func (r *Reader) Metadata() Metadata {
	return r.pkg.Metadata
}

// Version returns the package document version.
func (r *Reader) Version() string {
	return r.pkg.Version
}

// ChapterCount returns the number of chapters.
func (r *Reader) ChapterCount() int {
	return len(r.chapters)
}

// Chapters returns all chapters in spine order.
func (r *Reader) Chapters() []*Chapter {
	return r.chapters
}

// Images returns the number of images in chapters plus image spine items.
func (r *Reader) Images() int {
	n := r.images
	for _, ch := range r.chapters {
		n += ch.Images
	}
	return n
}

// Text returns the text of all chapters, separated by blank lines.
func (r *Reader) Text() string {
	var parts []string
	for _, ch := range r.chapters {
		if text := strings.TrimSpace(ch.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Estimate opens the publication in data and estimates its page count.
func Estimate(data []byte, opts textdoc.Options) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Estimate(opts), nil
}

// Estimate returns ceil(characters / chars per page) pages over the text of
// every spine document.
func (r *Reader) Estimate(opts textdoc.Options) *model.Result {
	cpp := opts.CharsPerPage
	if cpp <= 0 {
		cpp = textdoc.DefaultCharsPerPage
	}
	size := opts.PageSize
	if size.WidthMM <= 0 || size.HeightMM <= 0 {
		size = model.A4.Size()
	}

	chars := utf8.RuneCountInString(r.Text())
	res := model.NewResult("epub")
	res.PageCount = model.PagesFor(chars, cpp)
	res.FillPageSizes(size)
	res.AddNote(fmt.Sprintf("chars: %d, chars_per_page: %d", chars, cpp))

	meta := r.Metadata()
	if meta.Title != "" {
		res.AddNote("Title: " + meta.Title)
	}
	if len(meta.Creator) > 0 {
		res.AddNote("Author: " + strings.Join(meta.Creator, ", "))
	}
	res.AddNote(fmt.Sprintf("EPUB has %d chapters", len(r.chapters)))

	nonLinear := 0
	for _, ch := range r.chapters {
		if !ch.Linear {
			nonLinear++
		}
	}
	if nonLinear > 0 {
		res.AddNote(fmt.Sprintf("Includes %d non-linear spine items", nonLinear))
	}

	res.AddNote("EPUB parsed as text; images/embedded content not considered.")
	if n := r.Images(); n > 0 {
		res.AddNote(fmt.Sprintf("EPUB contains %d images", n))
	}
	return res
}
