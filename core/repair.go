package core

import (
	"bytes"
	"errors"
	"sort"
	"strconv"
)

// ErrNoObjects is returned by RebuildXRef when the scan finds nothing.
var ErrNoObjects = errors.New("repair scan found no objects")

// RebuildXRef reconstructs a cross-reference table by scanning data for
// "N G obj" markers. Later definitions win, as with incremental updates.
// Objects packed in object streams are added as compressed entries. The
// trailer is the last parseable "trailer" dictionary; when it has no /Root,
// the first /Type /Catalog object found is used.
func RebuildXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	marker := []byte("obj")

	for from := 0; ; {
		idx := bytes.Index(data[from:], marker)
		if idx < 0 {
			break
		}
		at := from + idx
		from = at + len(marker)

		// "endobj" and names like "objx" are not markers
		if at > 0 && !isWhitespace(data[at-1]) {
			continue
		}
		if from < len(data) && isRegular(data[from]) {
			continue
		}
		num, gen, start, ok := objectHeaderBefore(data, at)
		if !ok {
			continue
		}
		table.Entries[num] = &XRefEntry{Type: XRefInUse, Offset: int64(start), Generation: gen}
	}

	if len(table.Entries) == 0 {
		return nil, ErrNoObjects
	}

	table.Trailer = lastTrailer(data)
	addObjectStreamEntries(data, table)

	if !table.Trailer.Has("Root") {
		if root, ok := findCatalog(data, table); ok {
			table.Trailer["Root"] = root
		}
	}
	if !table.Trailer.Has("Size") {
		table.Trailer["Size"] = Int(maxObjectNumber(table) + 1)
	}
	return table, nil
}

// objectHeaderBefore walks back from the "obj" keyword at pos over
// "<num> <gen> " and returns the offset where <num> starts.
func objectHeaderBefore(data []byte, pos int) (num, gen, start int, ok bool) {
	i := pos - 1
	for i >= 0 && isWhitespace(data[i]) {
		i--
	}
	genEnd := i + 1
	for i >= 0 && isDigit(data[i]) {
		i--
	}
	genStart := i + 1
	if genStart == genEnd {
		return 0, 0, 0, false
	}
	sep := i
	for i >= 0 && isWhitespace(data[i]) {
		i--
	}
	if i == sep {
		return 0, 0, 0, false
	}
	numEnd := i + 1
	for i >= 0 && isDigit(data[i]) {
		i--
	}
	numStart := i + 1
	if numStart == numEnd || numEnd-numStart > 10 || genEnd-genStart > 5 {
		return 0, 0, 0, false
	}
	if numStart > 0 && isRegular(data[numStart-1]) {
		return 0, 0, 0, false
	}

	n, err1 := strconv.Atoi(string(data[numStart:numEnd]))
	g, err2 := strconv.Atoi(string(data[genStart:genEnd]))
	if err1 != nil || err2 != nil {
		return 0, 0, 0, false
	}
	return n, g, numStart, true
}

func lastTrailer(data []byte) Dict {
	trailer := Dict{}
	kw := []byte("trailer")
	for from := 0; ; {
		idx := bytes.Index(data[from:], kw)
		if idx < 0 {
			break
		}
		at := from + idx + len(kw)
		from = at
		obj, err := NewParserAt(data, at).ParseObject()
		if err != nil {
			continue
		}
		if d, ok := obj.(Dict); ok {
			trailer = d
		}
	}
	return trailer
}

func sortedObjectNumbers(table *XRefTable) []int {
	nums := make([]int, 0, len(table.Entries))
	for n := range table.Entries {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func addObjectStreamEntries(data []byte, table *XRefTable) {
	for _, num := range sortedObjectNumbers(table) {
		e := table.Entries[num]
		if e.Type != XRefInUse {
			continue
		}
		ind, err := NewParserAt(data, int(e.Offset)).ParseIndirectObject()
		if err != nil {
			continue
		}
		stream, ok := ind.Object.(*Stream)
		if !ok {
			continue
		}
		if stream.Dict.IsType("XRef") && !table.Trailer.Has("Root") {
			if root, ok := stream.Dict.GetIndirectRef("Root"); ok {
				table.Trailer["Root"] = root
			}
			continue
		}
		if !stream.Dict.IsType("ObjStm") {
			continue
		}
		os, err := NewObjectStream(stream)
		if err != nil {
			continue
		}
		nums, err := os.ObjectNumbers()
		if err != nil {
			continue
		}
		for i, n := range nums {
			if _, exists := table.Entries[n]; !exists {
				table.Entries[n] = &XRefEntry{Type: XRefCompressed, StreamNum: num, Index: i}
			}
		}
	}
}

func findCatalog(data []byte, table *XRefTable) (IndirectRef, bool) {
	for _, num := range sortedObjectNumbers(table) {
		e := table.Entries[num]
		if e.Type != XRefInUse {
			continue
		}
		ind, err := NewParserAt(data, int(e.Offset)).ParseIndirectObject()
		if err != nil {
			continue
		}
		if d, ok := ind.Object.(Dict); ok && d.IsType("Catalog") {
			return ind.Ref, true
		}
	}
	return IndirectRef{}, false
}

func maxObjectNumber(table *XRefTable) int {
	max := 0
	for n := range table.Entries {
		if n > max {
			max = n
		}
	}
	return max
}
