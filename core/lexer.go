package core

import (
	"bytes"
	"fmt"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword   // true, false, null, obj, endobj, stream, R, ...
	TokenInteger   // 123
	TokenReal      // 3.14
	TokenString    // (hello)
	TokenHexString // <48656C6C6F>
	TokenName      // /Type
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

// Token is a lexical token. Value aliases the input buffer except for
// strings and names, which are decoded into fresh slices.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

// Lexer tokenizes PDF syntax from a byte slice.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at offset.
func NewLexer(data []byte, offset int) *Lexer {
	if offset < 0 {
		offset = 0
	}
	if offset > len(data) {
		offset = len(data)
	}
	return &Lexer{data: data, pos: offset}
}

// Pos returns the current offset.
func (l *Lexer) Pos() int {
	return l.pos
}

// NextToken returns the next token, skipping whitespace.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]

	switch b {
	case '%':
		for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
			l.pos++
		}
		return Token{Type: TokenComment, Value: l.data[start:l.pos], Pos: start}, nil
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at position %d", start)
	case '/':
		return l.readName()
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	if isRegular(b) {
		for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	}

	return Token{}, fmt.Errorf("unexpected character %q at position %d", b, start)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	isReal := false
	if b := l.data[l.pos]; b == '-' || b == '+' {
		l.pos++
	}
	digits := 0
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isDigit(b) {
			digits++
		} else if b == '.' && !isReal {
			isReal = true
		} else {
			break
		}
		l.pos++
	}
	if digits == 0 {
		return Token{}, fmt.Errorf("invalid number at position %d", start)
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return Token{Type: typ, Value: l.data[start:l.pos], Pos: start}, nil
}

// readName decodes #xx escapes.
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++
	var out []byte
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		b := l.data[l.pos]
		if b == '#' && l.pos+2 < len(l.data) {
			hi, ok1 := hexValue(l.data[l.pos+1])
			lo, ok2 := hexValue(l.data[l.pos+2])
			if ok1 && ok2 {
				out = append(out, hi<<4|lo)
				l.pos += 3
				continue
			}
		}
		out = append(out, b)
		l.pos++
	}
	return Token{Type: TokenName, Value: out, Pos: start}, nil
}

// readString reads a literal string with balanced parentheses and escapes.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++
	depth := 1
	var out []byte

	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: out, Pos: start}, nil
			}
			out = append(out, b)
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string at position %d", start)
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	end := bytes.IndexByte(l.data[l.pos:], '>')
	if end < 0 {
		return Token{}, fmt.Errorf("unterminated hex string at position %d", start)
	}

	var out []byte
	var hi byte
	half := false
	for _, c := range l.data[l.pos+1 : l.pos+end] {
		if isWhitespace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return Token{}, fmt.Errorf("invalid hex digit %q at position %d", c, start)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	l.pos += end + 1
	return Token{Type: TokenHexString, Value: out, Pos: start}, nil
}

// SkipStreamEOL skips the CRLF or LF that follows the "stream" keyword.
// A lone CR is tolerated.
func (l *Lexer) SkipStreamEOL() {
	for l.pos < len(l.data) && (l.data[l.pos] == ' ' || l.data[l.pos] == '\t') {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// ReadBytes returns the next n bytes without copying.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(l.data)-l.pos {
		return nil, fmt.Errorf("cannot read %d bytes at position %d: only %d remain", n, l.pos, len(l.data)-l.pos)
	}
	out := l.data[l.pos : l.pos+n]
	l.pos += n
	return out, nil
}

// ReadUntil returns the bytes before the next occurrence of marker and moves
// to the marker. It is used when a stream's /Length cannot be trusted.
func (l *Lexer) ReadUntil(marker []byte) ([]byte, bool) {
	idx := bytes.Index(l.data[l.pos:], marker)
	if idx < 0 {
		return nil, false
	}
	out := l.data[l.pos : l.pos+idx]
	l.pos += idx
	return out, true
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
