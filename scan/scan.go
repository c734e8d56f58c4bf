// Package scan provides bounds-checked byte scanning primitives for PDF
// structure recovery.
//
// Every function is total: any slice, any offset (negative or past the end)
// yields "not found" instead of a panic. Nothing here validates UTF-8.
package scan

import (
	"bytes"
	"strconv"
)

// IsWhitespace reports whether b is one of the PDF whitespace bytes handled by
// the scanners: space, tab, CR, LF and NUL.
func IsWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == 0
}

// IsDigit reports whether b is an ASCII decimal digit.
func IsDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// clamp restricts off to [0, n].
func clamp(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n {
		return n
	}
	return off
}

// Find returns the offset of the first occurrence of pattern at or after from.
func Find(h, pattern []byte, from int) (int, bool) {
	return FindIn(h, pattern, from, len(h))
}

// FindIn returns the offset of the first occurrence of pattern that lies
// entirely within h[from:to].
func FindIn(h, pattern []byte, from, to int) (int, bool) {
	if len(pattern) == 0 {
		return 0, false
	}
	to = clamp(to, len(h))
	from = clamp(from, to)
	idx := bytes.Index(h[from:to], pattern)
	if idx < 0 {
		return 0, false
	}
	return from + idx, true
}

// FindLast returns the offset of the last occurrence of pattern that starts at
// or after from.
func FindLast(h, pattern []byte, from int) (int, bool) {
	if len(pattern) == 0 {
		return 0, false
	}
	from = clamp(from, len(h))
	idx := bytes.LastIndex(h[from:], pattern)
	if idx < 0 {
		return 0, false
	}
	return from + idx, true
}

// SkipWhitespace returns the first offset at or after from that is not PDF
// whitespace. The result is clamped to [0, len(h)].
func SkipWhitespace(h []byte, from int) int {
	pos := clamp(from, len(h))
	for pos < len(h) && IsWhitespace(h[pos]) {
		pos++
	}
	return pos
}

// SkipLenient skips whitespace and any byte found in extra. Heuristic
// strategies use it to step over stray brackets before a number.
func SkipLenient(h []byte, from int, extra []byte) int {
	pos := clamp(from, len(h))
	for pos < len(h) && (IsWhitespace(h[pos]) || bytes.IndexByte(extra, h[pos]) >= 0) {
		pos++
	}
	return pos
}

// ParseUint parses the run of decimal digits starting exactly at from.
// It fails when there is no digit or when the value would exceed bound; the
// check happens before each multiply so the accumulator never wraps.
func ParseUint(h []byte, from int, bound uint64) (value uint64, next int, ok bool) {
	if from < 0 || from >= len(h) || !IsDigit(h[from]) {
		return 0, from, false
	}
	pos := from
	for pos < len(h) && IsDigit(h[pos]) {
		d := uint64(h[pos] - '0')
		if d > bound || value > (bound-d)/10 {
			return 0, pos, false
		}
		value = value*10 + d
		pos++
	}
	return value, pos, true
}

// ParseUintAfter skips whitespace at from and then parses an unsigned integer.
func ParseUintAfter(h []byte, from int, bound uint64) (uint64, int, bool) {
	return ParseUint(h, SkipWhitespace(h, from), bound)
}

// ParseFloat parses a PDF numeric token (integer or real) starting at from and
// ending before end. Accepted forms include "12", "-3.5", ".5" and "4.".
func ParseFloat(h []byte, from, end int) (value float64, next int, ok bool) {
	end = clamp(end, len(h))
	if from < 0 || from >= end {
		return 0, from, false
	}
	pos := from
	if h[pos] == '-' || h[pos] == '+' {
		pos++
	}
	digits, dots := 0, 0
	for pos < end {
		b := h[pos]
		if IsDigit(b) {
			digits++
		} else if b == '.' && dots == 0 {
			dots++
		} else {
			break
		}
		pos++
	}
	if digits == 0 {
		return 0, from, false
	}
	tok := string(h[from:pos])
	if tok[len(tok)-1] == '.' {
		tok += "0"
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, from, false
	}
	return v, pos, true
}

// ObjectMarker returns the "<n> 0 obj" marker of an indirect object.
func ObjectMarker(n uint64) []byte {
	b := strconv.AppendUint(nil, n, 10)
	return append(b, " 0 obj"...)
}

// FindObject locates the first "<n> 0 obj" marker that starts on a token
// boundary, so object 1 never matches inside "11 0 obj".
func FindObject(h []byte, n uint64) (int, bool) {
	marker := ObjectMarker(n)
	from := 0
	for {
		idx, ok := Find(h, marker, from)
		if !ok {
			return 0, false
		}
		end := idx + len(marker)
		startOK := idx == 0 || !IsDigit(h[idx-1])
		endOK := end >= len(h) || !isRegular(h[end])
		if startOK && endOK {
			return idx, true
		}
		from = idx + 1
	}
}

// isRegular reports whether b can continue a keyword such as "obj".
func isRegular(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || IsDigit(b)
}

// Window returns h[from:from+size] clamped to the slice.
func Window(h []byte, from, size int) []byte {
	start := clamp(from, len(h))
	if size < 0 {
		size = 0
	}
	end := len(h)
	if size < end-start {
		end = start + size
	}
	return h[start:end]
}
