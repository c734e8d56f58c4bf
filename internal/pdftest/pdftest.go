// Package pdftest builds small PDF files for tests. Offsets in the
// generated cross-reference sections are real, so the files open through
// both the byte-level fast path and the full parser.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"strings"
)

// Classic lays out objects as 1 0 obj, 2 0 obj, ... and appends a classic
// xref table and trailer. Object 1 is the catalog. extraTrailer is written
// inside the trailer dictionary.
func Classic(objects []string, extraTrailer string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := writeObjects(&buf, objects, 1)

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R %s>>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, extraTrailer, xref)
	return buf.Bytes()
}

// Compressed writes direct objects as 1..len(direct), packs the packed
// objects into one object stream, and indexes everything with a Flate
// compressed xref stream. Packed objects are numbered after the direct ones;
// object 1 is the catalog, so it is usually packed with direct empty.
//
// The file has no "trailer" keyword, so only the full parser can open it.
func Compressed(direct, packed []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	offsets := writeObjects(&buf, direct, 1)

	firstPacked := len(direct) + 1
	stmNum := firstPacked + len(packed)
	xrefNum := stmNum + 1

	var header, body strings.Builder
	for i, obj := range packed {
		fmt.Fprintf(&header, "%d %d ", firstPacked+i, body.Len())
		body.WriteString(obj)
		body.WriteString("\n")
	}
	stmData := Deflate([]byte(header.String() + body.String()))

	stmOffset := buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /ObjStm /N %d /First %d /Length %d /Filter /FlateDecode >>\nstream\n",
		stmNum, len(packed), header.Len(), len(stmData))
	buf.Write(stmData)
	buf.WriteString("\nendstream\nendobj\n")

	// W [1 4 2]
	var rows bytes.Buffer
	row := func(typ byte, f2 uint32, f3 uint16) {
		rows.WriteByte(typ)
		binary.Write(&rows, binary.BigEndian, f2)
		binary.Write(&rows, binary.BigEndian, f3)
	}
	row(0, 0, 65535)
	for _, off := range offsets {
		row(1, uint32(off), 0)
	}
	for i := range packed {
		row(2, uint32(stmNum), uint16(i))
	}
	row(1, uint32(stmOffset), 0)
	xrefOffset := buf.Len()
	row(1, uint32(xrefOffset), 0)
	xrefData := Deflate(rows.Bytes())

	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Root 1 0 R /Length %d /Filter /FlateDecode >>\nstream\n",
		xrefNum, xrefNum+1, len(xrefData))
	buf.Write(xrefData)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

func writeObjects(buf *bytes.Buffer, objects []string, first int) []int {
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", first+i, body)
	}
	return offsets
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Size is a page size in points.
type Size struct {
	W, H float64
}

// Letter and A4 page sizes in points.
var (
	Letter = Size{612, 792}
	A4     = Size{595, 842}
)

// FlatTree returns objects for a catalog (1), a root Pages node (2) and one
// page per size (3...), each with its own MediaBox.
func FlatTree(sizes ...Size) []string {
	kids := make([]string, len(sizes))
	for i := range sizes {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(sizes)),
	}
	for _, s := range sizes {
		objects = append(objects, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] >>", num(s.W), num(s.H)))
	}
	return objects
}

// Uniform returns a flat tree of n pages with the box on the Pages node
// only, so every page inherits it.
func Uniform(n int, size Size) []string {
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %s %s] >>",
			strings.Join(kids, " "), n, num(size.W), num(size.H)),
	}
	for i := 0; i < n; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R >>")
	}
	return objects
}

// Repeat returns n copies of size.
func Repeat(n int, size Size) []Size {
	out := make([]Size, n)
	for i := range out {
		out[i] = size
	}
	return out
}

func num(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
