package core

import (
	"testing"
)

func TestLexerTokens(t *testing.T) {
	input := "<< /Type /Page /MediaBox [0 0 612.5 -3] >> % comment\n(a\\(b\\)) <4142> true R"
	want := []struct {
		typ TokenType
		val string
	}{
		{TokenDictStart, "<<"},
		{TokenName, "Type"},
		{TokenName, "Page"},
		{TokenName, "MediaBox"},
		{TokenArrayStart, "["},
		{TokenInteger, "0"},
		{TokenInteger, "0"},
		{TokenReal, "612.5"},
		{TokenInteger, "-3"},
		{TokenArrayEnd, "]"},
		{TokenDictEnd, ">>"},
		{TokenComment, "% comment"},
		{TokenString, "a(b)"},
		{TokenHexString, "AB"},
		{TokenKeyword, "true"},
		{TokenKeyword, "R"},
		{TokenEOF, ""},
	}

	lex := NewLexer([]byte(input), 0)
	for i, w := range want {
		tok, err := lex.NextToken()
		if err != nil {
			t.Fatalf("token %d: unexpected error: %v", i, err)
		}
		if tok.Type != w.typ || string(tok.Value) != w.val {
			t.Errorf("token %d = (%v, %q), want (%v, %q)", i, tok.Type, tok.Value, w.typ, w.val)
		}
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"newline", `(a\nb)`, "a\nb"},
		{"octal", `(\101\102)`, "AB"},
		{"short octal", `(\7x)`, "\x07x"},
		{"nested parens", `(a(b)c)`, "a(b)c"},
		{"line continuation", "(ab\\\ncd)", "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewLexer([]byte(tt.input), 0).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(tok.Value) != tt.want {
				t.Errorf("got %q, want %q", tok.Value, tt.want)
			}
		})
	}
}

func TestLexerNameEscapes(t *testing.T) {
	tok, err := NewLexer([]byte("/A#20B"), 0).NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(tok.Value) != "A B" {
		t.Errorf("got %q, want %q", tok.Value, "A B")
	}
}

func TestLexerErrors(t *testing.T) {
	inputs := []string{"(unterminated", "<4G>", "<abc", ">", "-", ")"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := NewLexer([]byte(in), 0).NextToken(); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestLexerReadBytes(t *testing.T) {
	lex := NewLexer([]byte("stream\r\nDATAendstream"), 6)
	lex.SkipStreamEOL()
	got, err := lex.ReadBytes(4)
	if err != nil || string(got) != "DATA" {
		t.Fatalf("ReadBytes() = %q, %v", got, err)
	}
	if _, err := lex.ReadBytes(100); err == nil {
		t.Error("expected error reading past end")
	}
}
