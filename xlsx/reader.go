package xlsx

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
)

// DefaultRowsPerPage is the number of worksheet rows assumed to fit on one
// printed page.
const DefaultRowsPerPage = 40

// maxPartSize bounds how much of a single archive member is decompressed.
const maxPartSize = 256 << 20

// ErrPartTooLarge is returned when an archive member decompresses past the
// reader's size limit.
var ErrPartTooLarge = errors.New("xlsx: part too large")

// Reader provides access to XLSX workbook content held in memory.
type Reader struct {
	files         map[string]*zip.File
	workbook      *workbookXML
	sharedStrings []string
	sheetRels     map[string]string // RID -> target path
	sheets        []*Sheet
}

// OpenBytes parses an XLSX workbook from data. Worksheets that cannot be
// read do not fail the open; they are reported through Sheet.Err.
func OpenBytes(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{
		files:     make(map[string]*zip.File, len(zr.File)),
		sheetRels: make(map[string]string),
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

	if err := r.parseWorkbook(); err != nil {
		return nil, fmt.Errorf("parsing workbook: %w", err)
	}

	// Shared strings are optional.
	_ = r.parseSharedStrings()

	r.parseWorksheets()

	return r, nil
}

// validate checks that required XLSX files exist.
func (r *Reader) validate() error {
	required := []string{
		"[Content_Types].xml",
		"xl/workbook.xml",
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

// parseRelationships parses the workbook relationships file.
func (r *Reader) parseRelationships() error {
	data, err := r.getFileContent("xl/_rels/workbook.xml.rels")
	if err != nil {
		// Try alternate location
		data, err = r.getFileContent("xl/_rels/workbook.rels")
		if err != nil {
			return nil // Relationships are optional
		}
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return err
	}
	for _, rel := range rels.Relationship {
		r.sheetRels[rel.ID] = rel.Target
	}
	return nil
}

// parseWorkbook parses the main workbook file.
func (r *Reader) parseWorkbook() error {
	data, err := r.getFileContent("xl/workbook.xml")
	if err != nil {
		return err
	}

	r.workbook = &workbookXML{}
	return xml.Unmarshal(data, r.workbook)
}

// parseSharedStrings parses the shared strings table.
func (r *Reader) parseSharedStrings() error {
	data, err := r.getFileContent("xl/sharedStrings.xml")
	if err != nil {
		return err
	}

	var sst sharedStringsXML
	if err := xml.Unmarshal(data, &sst); err != nil {
		return err
	}

	r.sharedStrings = make([]string, len(sst.SI))
	for i, si := range sst.SI {
		r.sharedStrings[i] = joinRuns(si.T, si.R)
	}
	return nil
}

func joinRuns(t string, runs []rXML) string {
	if t != "" || len(runs) == 0 {
		return t
	}
	var text strings.Builder
	for _, run := range runs {
		text.WriteString(run.T)
	}
	return text.String()
}

// sheetPath resolves the archive path of the i-th worksheet.
func (r *Reader) sheetPath(i int, ref sheetRefXML) string {
	target := r.sheetRels[ref.RID]
	if target == "" {
		target = fmt.Sprintf("worksheets/sheet%d.xml", i+1)
	}
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	if !strings.HasPrefix(target, "xl/") {
		target = "xl/" + target
	}
	return target
}

// parseWorksheets parses every worksheet listed in the workbook, in
// workbook order.
func (r *Reader) parseWorksheets() {
	r.sheets = make([]*Sheet, 0, len(r.workbook.Sheets.Sheet))

	for i, ref := range r.workbook.Sheets.Sheet {
		sheet, err := r.parseWorksheet(r.sheetPath(i, ref), ref.Name, i)
		if err != nil {
			sheet = newSheet(ref.Name, i)
			sheet.Err = err
		}
		r.sheets = append(r.sheets, sheet)
	}
}

func newSheet(name string, index int) *Sheet {
	return &Sheet{Name: name, Index: index, FirstRow: -1, LastRow: -1}
}

// parseWorksheet parses a single worksheet, keeping only cells that carry a
// value. Rows and cells without explicit references follow the previous one.
func (r *Reader) parseWorksheet(path, name string, index int) (*Sheet, error) {
	data, err := r.getFileContent(path)
	if err != nil {
		return nil, err
	}

	var ws worksheetXML
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}

	sheet := newSheet(name, index)
	rowIdx := -1
	for _, row := range ws.SheetData.Rows {
		if row.R > 0 {
			rowIdx = row.R - 1
		} else {
			rowIdx++
		}

		colIdx := -1
		for _, cx := range row.Cells {
			cellRow := rowIdx
			if col, rr, err := ParseCellRef(cx.R); err == nil {
				colIdx, cellRow = col, rr
			} else {
				colIdx++
			}

			cell := r.decodeCell(cx)
			if cell.IsEmpty() {
				continue
			}
			cell.Row, cell.Col = cellRow, colIdx
			sheet.add(cell)
		}
	}

	return sheet, nil
}

// decodeCell determines a cell's type and display value.
func (r *Reader) decodeCell(cx cellXML) Cell {
	if cx.T == "inlineStr" {
		if cx.Is == nil {
			return Cell{Type: CellTypeEmpty}
		}
		return Cell{Type: CellTypeString, Value: joinRuns(cx.Is.T, cx.Is.R)}
	}
	if cx.V == nil {
		// A formula without a cached result has nothing to print.
		return Cell{Type: CellTypeEmpty}
	}

	v := *cx.V
	switch cx.T {
	case "s":
		cell := Cell{Type: CellTypeString}
		idx, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil && idx >= 0 && idx < len(r.sharedStrings) {
			cell.Value = r.sharedStrings[idx]
		}
		return cell
	case "b":
		if strings.TrimSpace(v) == "1" {
			return Cell{Type: CellTypeBoolean, Value: "TRUE"}
		}
		return Cell{Type: CellTypeBoolean, Value: "FALSE"}
	case "e":
		return Cell{Type: CellTypeError, Value: v}
	case "str":
		return Cell{Type: CellTypeString, Value: v}
	default:
		if strings.TrimSpace(v) == "" {
			return Cell{Type: CellTypeEmpty}
		}
		return Cell{Type: CellTypeNumber, Value: v}
	}
}

// SheetCount returns the number of worksheets listed in the workbook.
func (r *Reader) SheetCount() int {
	return len(r.sheets)
}

// SheetNames returns the names of all sheets in workbook order.
func (r *Reader) SheetNames() []string {
	names := make([]string, len(r.sheets))
	for i, s := range r.sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the sheet at the given index (0-indexed).
func (r *Reader) Sheet(index int) (*Sheet, error) {
	if index < 0 || index >= len(r.sheets) {
		return nil, fmt.Errorf("sheet index %d out of range [0, %d)", index, len(r.sheets))
	}
	return r.sheets[index], nil
}

// SheetByName returns the sheet with the given name.
func (r *Reader) SheetByName(name string) (*Sheet, error) {
	for _, s := range r.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("sheet not found: %s", name)
}

// Estimate opens the workbook in data and estimates its printed page count.
// Each sheet needs ceil(rows / rowsPerPage) pages, where rows spans the
// sheet's first to last non-empty row. Every page gets size.
func Estimate(data []byte, rowsPerPage int, size model.PageSize) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Estimate(rowsPerPage, size), nil
}

// Estimate estimates the printed page count of the opened workbook.
func (r *Reader) Estimate(rowsPerPage int, size model.PageSize) *model.Result {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}

	res := model.NewResult("xlsx")
	for _, s := range r.sheets {
		if s.Err != nil {
			res.AddNote(fmt.Sprintf("Could not read sheet '%s'", s.Name))
			continue
		}
		rows := s.RowCount()
		pages := model.PagesFor(rows, rowsPerPage)
		if pages == 0 {
			res.AddNote(fmt.Sprintf("Sheet '%s' empty; 0 pages", s.Name))
			continue
		}
		res.PageCount += pages
		res.AddNote(fmt.Sprintf("Sheet '%s' rows: %d, pages: %d", s.Name, rows, pages))
	}

	if res.PageCount == 0 {
		res.AddNote("Workbook appears empty or unreadable; returning 0 pages.")
	}
	res.FillPageSizes(size)
	return res
}
