package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/pagecount/model"
)

// emuPerPoint converts English Metric Units to PDF points.
const emuPerPoint = 12700

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 256 << 20

// ErrPartTooLarge is returned when an archive member decompresses past the
// reader's size limit.
var ErrPartTooLarge = errors.New("pptx: part too large")

// Slide is one slide of the deck, in presentation order.
type Slide struct {
	Index  int
	Path   string
	Hidden bool
}

// Reader provides access to PPTX presentation structure held in memory.
type Reader struct {
	files        map[string]*zip.File
	presentation *presentationXML
	presRels     map[string]string // RID -> target path
	slides       []*Slide
	coreProps    *corePropertiesXML
	appProps     *appPropertiesXML
}

// OpenBytes parses a PPTX presentation from data.
func OpenBytes(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{
		files:    make(map[string]*zip.File, len(zr.File)),
		presRels: make(map[string]string),
	}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	if err := r.parseRelationships(); err != nil {
		return nil, fmt.Errorf("parsing relationships: %w", err)
	}

	if err := r.parsePresentation(); err != nil {
		return nil, fmt.Errorf("parsing presentation: %w", err)
	}

	r.parseSlides()

	// Metadata is optional
	r.parseCoreProperties()
	r.parseAppProperties()

	return r, nil
}

// validate checks that required PPTX files exist.
func (r *Reader) validate() error {
	required := []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
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

// parseRelationships parses the presentation relationships file.
func (r *Reader) parseRelationships() error {
	data, err := r.getFileContent("ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil // Relationships might be optional
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return err
	}
	for _, rel := range rels.Relationship {
		r.presRels[rel.ID] = rel.Target
	}
	return nil
}

// parsePresentation parses the main presentation file.
func (r *Reader) parsePresentation() error {
	data, err := r.getFileContent("ppt/presentation.xml")
	if err != nil {
		return err
	}

	r.presentation = &presentationXML{}
	return xml.Unmarshal(data, r.presentation)
}

// parseSlides builds the slide list. The presentation's slide id list gives
// the order when its relationships resolve; otherwise slide parts are taken
// in file-number order.
func (r *Reader) parseSlides() {
	paths := r.listedSlides()
	if paths == nil {
		paths = r.slideParts()
	}

	r.slides = make([]*Slide, 0, len(paths))
	for i, p := range paths {
		r.slides = append(r.slides, &Slide{
			Index:  i,
			Path:   p,
			Hidden: r.isHidden(p),
		})
	}
}

// listedSlides resolves the slide id list through the presentation
// relationships. It returns nil when any entry fails to resolve.
func (r *Reader) listedSlides() []string {
	if r.presentation.SlideIdList == nil {
		return nil
	}
	ids := r.presentation.SlideIdList.SlideId
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		target := r.presRels[id.RID]
		if target == "" {
			return nil
		}
		p := resolveTarget(target)
		if r.files[p] == nil {
			return nil
		}
		paths = append(paths, p)
	}
	return paths
}

// resolveTarget turns a relationship target relative to ppt/ into an
// archive path.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("ppt", target)
}

// slideParts returns every ppt/slides/slideN.xml part sorted by N.
func (r *Reader) slideParts() []string {
	paths := make([]string, 0)
	for name := range r.files {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") &&
			!strings.Contains(name, "_rels") {
			paths = append(paths, name)
		}
	}

	sort.Slice(paths, func(i, j int) bool {
		ni, nj := extractSlideNumber(paths[i]), extractSlideNumber(paths[j])
		if ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
	return paths
}

// extractSlideNumber extracts the slide number from a path like "ppt/slides/slide1.xml"
func extractSlideNumber(p string) int {
	name := strings.TrimPrefix(p, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	num, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return num
}

// isHidden reports whether the slide part is marked as not shown. Unreadable
// slides count as shown.
func (r *Reader) isHidden(p string) bool {
	data, err := r.getFileContent(p)
	if err != nil {
		return false
	}
	var s slideXML
	if err := xml.Unmarshal(data, &s); err != nil {
		return false
	}
	return s.Show == "0" || s.Show == "false"
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

// SlideCount returns the number of slides found in the package.
func (r *Reader) SlideCount() int {
	return len(r.slides)
}

// Slide returns the slide at the given index (0-indexed).
func (r *Reader) Slide(index int) (*Slide, error) {
	if index < 0 || index >= len(r.slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(r.slides)-1)
	}
	return r.slides[index], nil
}

// HiddenSlides returns the number of slides marked as hidden.
func (r *Reader) HiddenSlides() int {
	n := 0
	for _, s := range r.slides {
		if s.Hidden {
			n++
		}
	}
	return n
}

// Title returns the presentation title from the core properties, if any.
func (r *Reader) Title() string {
	if r.coreProps == nil {
		return ""
	}
	return strings.TrimSpace(r.coreProps.Title)
}

// DeclaredSlides returns the slide count the authoring application saved in
// docProps/app.xml. ok is false when the value is missing or not positive.
func (r *Reader) DeclaredSlides() (slides int, ok bool) {
	if r.appProps == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.appProps.Slides))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SlideSize returns the slide size declared in ppt/presentation.xml.
func (r *Reader) SlideSize() (model.PageSize, bool) {
	sz := r.presentation.SlideSz
	if sz == nil || sz.Cx <= 0 || sz.Cy <= 0 {
		return model.PageSize{}, false
	}
	return model.PageSizeFromPoints(float64(sz.Cx)/emuPerPoint, float64(sz.Cy)/emuPerPoint), true
}

// Estimate opens the presentation in data and reports one page per slide.
// fallback is used when the presentation declares no slide size.
func Estimate(data []byte, fallback model.PageSize) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Estimate(fallback), nil
}

// Estimate reports one page per slide. The count saved by the authoring
// application wins over the slides found in the package.
func (r *Reader) Estimate(fallback model.PageSize) *model.Result {
	res := model.NewResult("pptx")

	if n, ok := r.DeclaredSlides(); ok {
		res.PageCount = n
		res.AddNote(fmt.Sprintf("Slide count from document properties: %d", n))
		if n != len(r.slides) {
			res.AddNote(fmt.Sprintf("Package contains %d slide parts", len(r.slides)))
		}
	} else {
		res.PageCount = len(r.slides)
		res.AddNote(fmt.Sprintf("Slide count from slide parts: %d", res.PageCount))
	}

	if hidden := r.HiddenSlides(); hidden > 0 {
		res.AddNote(fmt.Sprintf("Presentation has %d hidden slides", hidden))
	}
	if title := r.Title(); title != "" {
		res.AddNote("Title: " + title)
	}

	size, ok := r.SlideSize()
	if ok {
		res.AddNote(fmt.Sprintf("Slide size: %.1f × %.1f mm", size.WidthMM, size.HeightMM))
	} else {
		size = fallback
		if size.WidthMM <= 0 || size.HeightMM <= 0 {
			size = model.A4.Size()
		}
	}

	if res.PageCount == 0 {
		res.AddNote("Presentation has no slides; returning 0 pages.")
	}
	res.FillPageSizes(size)
	return res
}
