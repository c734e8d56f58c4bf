package core

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type mockResolver struct {
	objects map[int]Object
}

func (m *mockResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m.objects[ref.Number]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("object %d not found", ref.Number)
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"null", "null", "null"},
		{"bool", "true", "true"},
		{"int", "42", "42"},
		{"real", "-1.5", "-1.5"},
		{"name", "/Pages", "/Pages"},
		{"ref", "3 0 R", "3 0 R"},
		{"array of ints", "[1 2 3]", "[1 2 3]"},
		{"array with refs", "[1 0 R 2 0 R]", "[1 0 R 2 0 R]"},
		{"dict", "<< /Type /Pages /Count 3 >>", "<</Count 3 /Type /Pages>>"},
		{"missing value", "<< /A >>", "<</A null>>"},
		{"comment inside", "[1 % two\n 3]", "[1 3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := NewParser([]byte(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj.String() != tt.want {
				t.Errorf("got %s, want %s", obj.String(), tt.want)
			}
		})
	}
}

func TestParseObjectEOF(t *testing.T) {
	_, err := NewParser([]byte("   ")).ParseObject()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestParseObjectTooDeep(t *testing.T) {
	input := strings.Repeat("[", MaxNestingDepth+10) + strings.Repeat("]", MaxNestingDepth+10)
	_, err := NewParser([]byte(input)).ParseObject()
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}
}

func TestParseIndirectObject(t *testing.T) {
	input := "7 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n"
	ind, err := NewParser([]byte(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ind.Ref.Number != 7 || ind.Ref.Generation != 0 {
		t.Errorf("ref = %v", ind.Ref)
	}
	dict, ok := ind.Object.(Dict)
	if !ok || !dict.IsType("Catalog") {
		t.Fatalf("expected catalog dict, got %v", ind.Object)
	}
	if ref, ok := dict.GetIndirectRef("Pages"); !ok || ref.Number != 2 {
		t.Errorf("Pages = %v", dict.Get("Pages"))
	}
}

func TestParseStream(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolver ReferenceResolver
		want     string
	}{
		{
			name:  "direct length",
			input: "1 0 obj\n<< /Length 5 >>\nstream\r\nhello\nendstream\nendobj",
			want:  "hello",
		},
		{
			name:     "indirect length",
			input:    "1 0 obj\n<< /Length 9 0 R >>\nstream\nhello\nendstream\nendobj",
			resolver: &mockResolver{objects: map[int]Object{9: Int(5)}},
			want:     "hello",
		},
		{
			name:  "unresolvable length",
			input: "1 0 obj\n<< /Length 9 0 R >>\nstream\nhello\nendstream\nendobj",
			want:  "hello",
		},
		{
			name:  "wrong length",
			input: "1 0 obj\n<< /Length 2 >>\nstream\nhello world\nendstream\nendobj",
			want:  "hello world",
		},
		{
			name:  "length past end",
			input: "1 0 obj\n<< /Length 5000 >>\nstream\nabc\r\nendstream\nendobj",
			want:  "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input))
			if tt.resolver != nil {
				p.SetReferenceResolver(tt.resolver)
			}
			ind, err := p.ParseIndirectObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			stream, ok := ind.Object.(*Stream)
			if !ok {
				t.Fatalf("expected stream, got %T", ind.Object)
			}
			if string(stream.Data) != tt.want {
				t.Errorf("data = %q, want %q", stream.Data, tt.want)
			}
		})
	}
}

func TestParseIndirectObjectErrors(t *testing.T) {
	inputs := []string{
		"",
		"1 0 xyz",
		"obj",
		"1 0 obj\n[1 2\n",
		"1 0 obj\n<< /Length 3 >>\nstream\nabc",
	}
	for _, in := range inputs {
		if _, err := NewParser([]byte(in)).ParseIndirectObject(); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestArrayFloats(t *testing.T) {
	got, ok := Array{Int(0), Real(0.5), Int(612), Real(792)}.Floats()
	if !ok || len(got) != 4 || got[1] != 0.5 || got[2] != 612 {
		t.Errorf("Floats() = %v, %v", got, ok)
	}
	if _, ok := (Array{Int(1), Name("x")}).Floats(); ok {
		t.Error("expected failure for non-numeric element")
	}
}
