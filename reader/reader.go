package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/tsawler/pagecount/core"
	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/pages"
)

// headerWindow is how far into the file the %PDF- header may start.
const headerWindow = 1024

// maxObjStmDepth bounds object streams that point into other object streams.
const maxObjStmDepth = 4

// ErrNotPDF is returned when no %PDF- header is found.
var ErrNotPDF = errors.New("not a PDF: header not found")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader resolves objects from an in-memory PDF.
type Reader struct {
	data      []byte
	version   PDFVersion
	xrefTable *core.XRefTable
	trailer   core.Dict
	repaired  bool

	objCache map[int]core.Object
	objStms  map[int]*core.ObjectStream
	loading  map[int]bool
	pageTree *pages.PageTree
}

var _ pages.ObjectResolver = (*Reader)(nil)
var _ core.ReferenceResolver = (*Reader)(nil)

// NewFromBytes opens data. The slice is borrowed, never modified, and must
// stay unchanged while the Reader is in use.
func NewFromBytes(data []byte) (*Reader, error) {
	r := &Reader{
		data:     data,
		objCache: make(map[int]core.Object),
		objStms:  make(map[int]*core.ObjectStream),
		loading:  make(map[int]bool),
	}

	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r.version = version

	if err := r.loadXRef(); err != nil {
		if rerr := r.repair(); rerr != nil {
			return nil, fmt.Errorf("failed to load xref: %w (repair: %v)", err, rerr)
		}
	}
	if _, err := r.GetCatalog(); err != nil && !r.repaired {
		if rerr := r.repair(); rerr != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	return r, nil
}

func parseHeader(data []byte) (PDFVersion, error) {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return PDFVersion{}, ErrNotPDF
	}

	rest := data[idx+5:]
	dot := bytes.IndexByte(rest, '.')
	if dot <= 0 || dot > 2 || dot+1 >= len(rest) {
		return PDFVersion{}, nil
	}
	major, err1 := strconv.Atoi(string(rest[:dot]))
	minor, err2 := strconv.Atoi(string(rest[dot+1 : dot+2]))
	if err1 != nil || err2 != nil {
		return PDFVersion{}, nil
	}
	return PDFVersion{Major: major, Minor: minor}, nil
}

func (r *Reader) loadXRef() error {
	tables, err := core.NewXRefParser(r.data).ParseAllXRefs()
	if err != nil {
		return err
	}
	table := core.MergeXRefTables(tables...)
	if !table.Trailer.Has("Root") {
		return fmt.Errorf("trailer missing /Root entry")
	}
	r.setTable(table)
	return nil
}

func (r *Reader) repair() error {
	if r.repaired {
		return fmt.Errorf("already repaired")
	}
	r.repaired = true
	table, err := core.RebuildXRef(r.data)
	if err != nil {
		return err
	}
	r.setTable(table)
	return nil
}

func (r *Reader) setTable(table *core.XRefTable) {
	r.xrefTable = table
	r.trailer = table.Trailer
	r.objCache = make(map[int]core.Object)
	r.objStms = make(map[int]*core.ObjectStream)
	r.pageTree = nil
}

// Version returns the header version, or 0.0 when it could not be read.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Repaired reports whether the xref table was rebuilt by scanning.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// XRefTable returns the merged cross-reference table.
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// GetObject loads an object by number. If the table entry is stale, the
// table is rebuilt once and the lookup retried.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	obj, err := r.getObject(objNum, 0)
	if err != nil && !r.repaired {
		if rerr := r.repair(); rerr == nil {
			return r.getObject(objNum, 0)
		}
	}
	return obj, err
}

func (r *Reader) getObject(objNum, depth int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("object %d refers to itself while loading", objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefInUse:
		obj, err = r.parseAt(objNum, entry.Offset)
	case core.XRefCompressed:
		obj, err = r.fromObjectStream(objNum, entry, depth)
	default:
		// free objects resolve to null
		obj = core.Null{}
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) parseAt(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d offset %d out of range", objNum, offset)
	}
	parser := core.NewParserAt(r.data, int(offset))
	parser.SetReferenceResolver(r)
	ind, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if ind.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, ind.Ref.Number)
	}
	return ind.Object, nil
}

func (r *Reader) fromObjectStream(objNum int, entry *core.XRefEntry, depth int) (core.Object, error) {
	if depth >= maxObjStmDepth {
		return nil, fmt.Errorf("object stream nesting too deep at object %d", objNum)
	}

	os, ok := r.objStms[entry.StreamNum]
	if !ok {
		container, err := r.getObject(entry.StreamNum, depth+1)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamNum, err)
		}
		stream, ok := container.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object %d is not an object stream", entry.StreamNum)
		}
		if os, err = core.NewObjectStream(stream); err != nil {
			return nil, err
		}
		r.objStms[entry.StreamNum] = os
	}

	num, obj, err := os.GetObjectByIndex(entry.Index)
	if err == nil && num == objNum {
		return obj, nil
	}
	// the index is only a hint; fall back to a header lookup
	return os.GetObject(objNum)
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves obj if it is an indirect reference. A nil object
// resolves to nil.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root reference")
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// NumObjects returns the trailer's /Size.
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}
	catalog, err := r.GetCatalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	root, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return err
	}
	r.pageTree = pages.NewPageTree(root, r)
	return nil
}

// PageCount returns the number of leaf pages in the page tree.
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

// PageBoxes returns the MediaBox and CropBox of the page at index, either
// of which may be nil.
func (r *Reader) PageBoxes(index int) (media, crop *model.Rect) {
	page, err := r.GetPage(index)
	if err != nil {
		return nil, nil
	}
	if mb, ok := page.MediaBox(); ok {
		media = &mb
	}
	if cb, ok := page.CropBox(); ok {
		crop = &cb
	}
	return media, crop
}
