package xlsx

import (
	"fmt"
	"strconv"
	"strings"
)

// CellType represents the type of data in a cell.
type CellType int

const (
	// CellTypeString indicates a string value.
	CellTypeString CellType = iota
	// CellTypeNumber indicates a numeric value.
	CellTypeNumber
	// CellTypeBoolean indicates a boolean value.
	CellTypeBoolean
	// CellTypeError indicates an error value.
	CellTypeError
	// CellTypeEmpty indicates a cell with no stored value.
	CellTypeEmpty
)

// String returns the string representation of the cell type.
func (t CellType) String() string {
	switch t {
	case CellTypeString:
		return "string"
	case CellTypeNumber:
		return "number"
	case CellTypeBoolean:
		return "boolean"
	case CellTypeError:
		return "error"
	case CellTypeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Cell is a stored cell value. Row and Col are 0-indexed.
type Cell struct {
	Value string
	Type  CellType
	Row   int
	Col   int
}

// IsEmpty reports whether the cell holds no value. A string cell holding
// "" still counts as a value, as spreadsheet applications print it.
func (c *Cell) IsEmpty() bool {
	return c.Type == CellTypeEmpty
}

// Sheet is a worksheet reduced to its non-empty cells.
type Sheet struct {
	Name  string
	Index int

	// Cells holds the non-empty cells in document order.
	Cells []Cell

	// FirstRow and LastRow bound the rows holding non-empty cells
	// (0-indexed). Both are -1 for a sheet without values.
	FirstRow int
	LastRow  int
	MaxCol   int

	// Err is set when the worksheet part could not be read or parsed.
	Err error
}

// RowCount returns the number of rows spanned by the sheet's values, from the
// first non-empty row to the last one inclusive.
func (s *Sheet) RowCount() int {
	if s.LastRow < 0 {
		return 0
	}
	return s.LastRow - s.FirstRow + 1
}

// Cell returns the non-empty cell at row and col (0-indexed), or nil.
func (s *Sheet) Cell(row, col int) *Cell {
	for i := range s.Cells {
		if s.Cells[i].Row == row && s.Cells[i].Col == col {
			return &s.Cells[i]
		}
	}
	return nil
}

// CellByRef returns the cell at the given reference (e.g., "A1").
func (s *Sheet) CellByRef(ref string) *Cell {
	col, row, err := ParseCellRef(ref)
	if err != nil {
		return nil
	}
	return s.Cell(row, col)
}

func (s *Sheet) add(c Cell) {
	if s.LastRow < 0 || c.Row < s.FirstRow {
		s.FirstRow = c.Row
	}
	if c.Row > s.LastRow {
		s.LastRow = c.Row
	}
	if c.Col > s.MaxCol {
		s.MaxCol = c.Col
	}
	s.Cells = append(s.Cells, c)
}

// ParseCellRef parses a cell reference like "A1" or "AA100" into column and row indices (0-indexed).
func ParseCellRef(ref string) (col, row int, err error) {
	if ref == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}

	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		i++
	}

	if i == 0 {
		return 0, 0, fmt.Errorf("invalid cell reference: no column letters")
	}
	if i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference: no row number")
	}

	colPart := ref[:i]
	rowPart := ref[i:]

	col = ColumnToIndex(colPart)
	if col < 0 {
		return 0, 0, fmt.Errorf("invalid column: %s", colPart)
	}

	rowNum, err := strconv.Atoi(rowPart)
	if err != nil || rowNum < 1 {
		return 0, 0, fmt.Errorf("invalid row: %s", rowPart)
	}

	return col, rowNum - 1, nil
}

// ColumnToIndex converts a column letter(s) to a 0-indexed column number.
// A=0, B=1, ..., Z=25, AA=26, AB=27, etc.
func ColumnToIndex(col string) int {
	col = strings.ToUpper(col)
	result := 0
	for _, c := range col {
		if c < 'A' || c > 'Z' {
			return -1
		}
		result = result*26 + int(c-'A') + 1
	}
	return result - 1
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
