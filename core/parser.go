package core

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MaxNestingDepth bounds array and dictionary nesting.
const MaxNestingDepth = 256

// ErrTooDeep is returned when nesting exceeds MaxNestingDepth.
var ErrTooDeep = errors.New("object nesting too deep")

// ReferenceResolver resolves indirect references. The parser uses it for
// stream lengths stored as separate objects.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from a byte slice with one token of lookahead.
type Parser struct {
	lexer    *Lexer
	cur      Token
	peek     Token
	err      error
	resolver ReferenceResolver
	depth    int
}

// NewParser creates a parser at the start of data.
func NewParser(data []byte) *Parser {
	return NewParserAt(data, 0)
}

// NewParserAt creates a parser positioned at offset.
func NewParserAt(data []byte, offset int) *Parser {
	p := &Parser{lexer: NewLexer(data, offset)}
	p.advance()
	p.advance()
	return p
}

// SetReferenceResolver sets the resolver used for indirect /Length values.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// advance shifts the lookahead. After "stream" the next bytes are binary, so
// the lookahead is left empty for parseStream to fill in.
func (p *Parser) advance() {
	p.cur = p.peek
	if p.cur.Type == TokenKeyword && string(p.cur.Value) == "stream" {
		p.peek = Token{Type: TokenEOF, Pos: p.lexer.Pos()}
		return
	}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			if p.err == nil {
				p.err = err
			}
			p.peek = Token{Type: TokenEOF, Pos: p.lexer.Pos()}
			return
		}
		if tok.Type != TokenComment {
			p.peek = tok
			return
		}
	}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur.Type == TokenKeyword && string(p.cur.Value) == kw
}

// ParseObject parses the next direct object or indirect reference.
func (p *Parser) ParseObject() (Object, error) {
	switch p.cur.Type {
	case TokenEOF:
		if p.err != nil {
			return nil, p.err
		}
		return nil, io.EOF

	case TokenKeyword:
		kw := string(p.cur.Value)
		switch kw {
		case "null":
			p.advance()
			return Null{}, nil
		case "true":
			p.advance()
			return Bool(true), nil
		case "false":
			p.advance()
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at position %d", kw, p.cur.Pos)

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		v, err := strconv.ParseFloat(string(p.cur.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.advance()
		return Real(v), nil

	case TokenString, TokenHexString:
		s := String(p.cur.Value)
		p.advance()
		return s, nil

	case TokenName:
		n := Name(p.cur.Value)
		p.advance()
		return n, nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}

	return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.Value, p.cur.Pos)
}

// parseNumber parses an integer, or an indirect reference when the integer
// is followed by "<gen> R".
func (p *Parser) parseNumber() (Object, error) {
	first, err := strconv.ParseInt(string(p.cur.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", p.cur.Value, err)
	}

	if p.peek.Type == TokenInteger {
		save := *p.lexer
		cur, peek, perr := p.cur, p.peek, p.err

		gen, err := strconv.ParseInt(string(p.peek.Value), 10, 64)
		p.advance()
		if err == nil && p.peek.Type == TokenKeyword && string(p.peek.Value) == "R" {
			p.advance()
			p.advance()
			return IndirectRef{Number: int(first), Generation: int(gen)}, nil
		}

		*p.lexer = save
		p.cur, p.peek, p.err = cur, peek, perr
	}

	p.advance()
	return Int(first), nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > MaxNestingDepth {
		return ErrTooDeep
	}
	return nil
}

func (p *Parser) parseArray() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.advance()

	arr := Array{}
	for {
		switch p.cur.Type {
		case TokenArrayEnd:
			p.advance()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.advance()

	dict := Dict{}
	for {
		switch p.cur.Type {
		case TokenDictEnd:
			p.advance()
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key at position %d", p.cur.Pos)
		}

		key := string(p.cur.Value)
		p.advance()
		if p.cur.Type == TokenDictEnd {
			// "/Key >>" with the value missing
			dict[key] = Null{}
			continue
		}
		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "N G obj <object> endobj", including streams.
// A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	if p.cur.Type != TokenInteger || p.peek.Type != TokenInteger {
		return nil, fmt.Errorf("expected object header at position %d", p.cur.Pos)
	}
	num, err := strconv.ParseInt(string(p.cur.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid object number: %w", err)
	}
	gen, err := strconv.ParseInt(string(p.peek.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid generation number: %w", err)
	}
	p.advance()
	p.advance()

	if !p.isKeyword("obj") {
		return nil, fmt.Errorf("expected 'obj' keyword at position %d", p.cur.Pos)
	}
	p.advance()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	if p.isKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream must follow a dictionary", num, gen)
		}
		if obj, err = p.parseStream(dict); err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
	}

	if p.isKeyword("endobj") {
		p.advance()
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: int(num), Generation: int(gen)},
		Object: obj,
	}, nil
}

// parseStream reads stream data after the "stream" keyword. When /Length is
// missing, unresolvable or wrong, the data runs up to the next "endstream".
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()

	var data []byte
	if length, ok := p.streamLength(dict); ok {
		if d, err := p.lexer.ReadBytes(length); err == nil {
			p.advance()
			p.advance()
			if p.isKeyword("endstream") {
				data = d
			}
		}
	}

	if data == nil {
		*p.lexer = Lexer{data: p.lexer.data, pos: start}
		d, ok := p.lexer.ReadUntil([]byte("endstream"))
		if !ok {
			return nil, fmt.Errorf("stream at position %d has no endstream", start)
		}
		data = trimStreamEOL(d)
		p.err = nil
		p.advance()
		p.advance()
	}

	if !p.isKeyword("endstream") {
		return nil, fmt.Errorf("expected 'endstream' at position %d", p.cur.Pos)
	}
	p.advance()
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, bool) {
	switch v := dict.Get("Length").(type) {
	case Int:
		return int(v), v >= 0
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		obj, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, false
		}
		n, ok := obj.(Int)
		return int(n), ok && n >= 0
	}
	return 0, false
}

func trimStreamEOL(d []byte) []byte {
	if n := len(d); n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}
	if n := len(d); n > 0 && d[n-1] == '\r' {
		d = d[:n-1]
	}
	return d
}
