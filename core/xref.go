package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoStartXRef is returned when no startxref keyword is found near EOF.
var ErrNoStartXRef = errors.New("startxref not found")

// startXRefWindow is how far from EOF startxref is searched for.
const startXRefWindow = 1024

// maxXRefSections bounds the /Prev chain.
const maxXRefSections = 64

// XRefEntryType distinguishes free, in-use and compressed entries.
type XRefEntryType int

const (
	XRefFree XRefEntryType = iota
	XRefInUse
	XRefCompressed
)

// XRefEntry is one cross-reference entry. For compressed entries StreamNum
// is the containing object stream and Index the position inside it.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	StreamNum  int
	Index      int
}

// XRefTable maps object numbers to entries, with the trailer that came
// with them.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]*XRefEntry), Trailer: Dict{}}
}

// Get returns the entry for objNum.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

// Size returns the number of entries.
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser reads cross-reference sections from a PDF held in memory.
type XRefParser struct {
	data []byte
}

// NewXRefParser creates a parser over data.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// FindXRef returns the offset following the last startxref keyword in the
// final kilobyte of the file.
func (x *XRefParser) FindXRef() (int64, error) {
	from := len(x.data) - startXRefWindow
	if from < 0 {
		from = 0
	}
	idx := bytes.LastIndex(x.data[from:], []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXRef
	}

	lex := NewLexer(x.data, from+idx+len("startxref"))
	tok, err := lex.NextToken()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	offset, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || offset < 0 || offset >= int64(len(x.data)) {
		return 0, fmt.Errorf("startxref offset %q out of range", tok.Value)
	}
	return offset, nil
}

// ParseXRef parses the section at offset, which is either a classic
// "xref" table or an xref stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	pos := int(offset)
	for pos < len(x.data) && isWhitespace(x.data[pos]) {
		pos++
	}
	if bytes.HasPrefix(x.data[pos:], []byte("xref")) {
		return x.parseTable(pos + len("xref"))
	}
	return x.parseStream(pos)
}

func (x *XRefParser) parseTable(pos int) (*XRefTable, error) {
	table := NewXRefTable()
	lex := NewLexer(x.data, pos)

	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, fmt.Errorf("xref table: %w", err)
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("xref table: expected subsection header at position %d", tok.Pos)
		}
		first, _ := strconv.Atoi(string(tok.Value))
		tok, err = lex.NextToken()
		if err != nil || tok.Type != TokenInteger {
			return nil, fmt.Errorf("xref table: invalid subsection count")
		}
		count, _ := strconv.Atoi(string(tok.Value))
		if count < 0 || count > len(x.data)/18 {
			return nil, fmt.Errorf("xref table: implausible subsection count %d", count)
		}

		for i := 0; i < count; i++ {
			entry, err := parseTableEntry(lex)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			if _, dup := table.Entries[first+i]; !dup {
				table.Entries[first+i] = entry
			}
		}
	}

	p := NewParserAt(x.data, lex.Pos())
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %s, not a dictionary", obj.Type())
	}
	table.Trailer = trailer
	return table, nil
}

// parseTableEntry reads "oooooooooo ggggg n|f". Token-based so that
// entries with one-byte line ends are accepted.
func parseTableEntry(lex *Lexer) (*XRefEntry, error) {
	var fields [3]Token
	for i := range fields {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		fields[i] = tok
	}
	if fields[0].Type != TokenInteger || fields[1].Type != TokenInteger || fields[2].Type != TokenKeyword {
		return nil, fmt.Errorf("malformed entry at position %d", fields[0].Pos)
	}
	offset, err := strconv.ParseInt(string(fields[0].Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset: %w", err)
	}
	gen, err := strconv.Atoi(string(fields[1].Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation: %w", err)
	}

	switch string(fields[2].Value) {
	case "n":
		return &XRefEntry{Type: XRefInUse, Offset: offset, Generation: gen}, nil
	case "f":
		return &XRefEntry{Type: XRefFree, Offset: offset, Generation: gen}, nil
	}
	return nil, fmt.Errorf("invalid in-use flag %q", fields[2].Value)
}

// parseStream decodes a /Type /XRef stream. The stream dictionary doubles
// as the trailer.
func (x *XRefParser) parseStream(pos int) (*XRefTable, error) {
	p := NewParserAt(x.data, pos)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok || !stream.Dict.IsType("XRef") {
		return nil, fmt.Errorf("object at offset %d is not an xref stream", pos)
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	table, err := decodeXRefStream(stream.Dict, data)
	if err != nil {
		return nil, err
	}
	table.Trailer = stream.Dict
	return table, nil
}

func decodeXRefStream(dict Dict, data []byte) (*XRefTable, error) {
	wArr, ok := dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream: /W must have 3 elements")
	}
	var w [3]int
	for i, v := range wArr {
		n, ok := v.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream: invalid /W entry %v", v)
		}
		w[i] = int(n)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("xref stream: entry size is 0")
	}

	var index []int
	if idxArr, ok := dict.GetArray("Index"); ok && len(idxArr)%2 == 0 {
		for _, v := range idxArr {
			n, ok := v.(Int)
			if !ok || n < 0 {
				return nil, fmt.Errorf("xref stream: invalid /Index entry %v", v)
			}
			index = append(index, int(n))
		}
	} else {
		size, ok := dict.GetInt("Size")
		if !ok || size <= 0 {
			return nil, fmt.Errorf("xref stream: missing /Size")
		}
		index = []int{0, int(size)}
	}

	table := NewXRefTable()
	off := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if off+entrySize > len(data) {
				// truncated; keep what was decoded
				return table, nil
			}
			row := data[off : off+entrySize]
			off += entrySize

			typ := int64(1)
			if w[0] > 0 {
				typ = readBigEndian(row[:w[0]])
			}
			f2 := readBigEndian(row[w[0] : w[0]+w[1]])
			f3 := readBigEndian(row[w[0]+w[1]:])

			var e *XRefEntry
			switch typ {
			case 0:
				e = &XRefEntry{Type: XRefFree, Offset: f2, Generation: int(f3)}
			case 1:
				e = &XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)}
			case 2:
				e = &XRefEntry{Type: XRefCompressed, StreamNum: int(f2), Index: int(f3)}
			default:
				// unknown types are treated as null references
				continue
			}
			table.Entries[start+j] = e
		}
	}
	return table, nil
}

func readBigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// ParseAllXRefs parses the section at startxref and every section reached
// through /Prev and /XRefStm, returned newest first. Offsets already
// visited end the chain.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	visited := make(map[int64]bool)
	queue := []int64{offset}

	for len(queue) > 0 && len(tables) < maxXRefSections {
		off := queue[0]
		queue = queue[1:]
		if visited[off] {
			continue
		}
		visited[off] = true

		table, err := x.ParseXRef(off)
		if err != nil {
			if len(tables) == 0 {
				return nil, err
			}
			// a broken older section only loses older entries
			continue
		}
		tables = append(tables, table)

		// hybrid files: the /XRefStm section takes precedence over /Prev
		if stm, ok := table.Trailer.GetInt("XRefStm"); ok {
			queue = append([]int64{int64(stm)}, queue...)
		}
		if prev, ok := table.Trailer.GetInt("Prev"); ok {
			queue = append(queue, int64(prev))
		}
	}
	return tables, nil
}

// MergeXRefTables merges sections given newest first. The first entry seen
// for an object wins; the newest trailer is kept, with /Root and /Size
// filled from older trailers when missing.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for i, t := range tables {
		for num, e := range t.Entries {
			if _, ok := merged.Entries[num]; !ok {
				merged.Entries[num] = e
			}
		}
		if i == 0 {
			for k, v := range t.Trailer {
				merged.Trailer[k] = v
			}
			continue
		}
		for _, key := range []string{"Root", "Size", "Info"} {
			if !merged.Trailer.Has(key) && t.Trailer.Has(key) {
				merged.Trailer[key] = t.Trailer[key]
			}
		}
	}
	return merged
}
