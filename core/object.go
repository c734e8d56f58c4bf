package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF object.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType identifies the kind of a PDF object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

var objectTypeNames = [...]string{"Null", "Bool", "Int", "Real", "String", "Name", "Array", "Dict", "Stream", "IndirectRef"}

func (t ObjectType) String() string {
	if t < 0 || int(t) >= len(objectTypeNames) {
		return "Unknown"
	}
	return objectTypeNames[t]
}

// Null is the PDF null object.
type Null struct{}

func (Null) Type() ObjectType { return ObjNull }
func (Null) String() string   { return "null" }

// Bool is a PDF boolean.
type Bool bool

func (Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int is a PDF integer.
type Int int64

func (Int) Type() ObjectType { return ObjInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (Real) Type() ObjectType { return ObjReal }
func (r Real) String() string { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String is a PDF string with escapes and hex already decoded.
type String string

func (String) Type() ObjectType { return ObjString }
func (s String) String() string { return string(s) }

// Name is a PDF name without the leading slash.
type Name string

func (Name) Type() ObjectType { return ObjName }
func (n Name) String() string { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = objString(obj)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Get returns the element at index, or nil when out of range.
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// Floats returns the array as numbers. It fails if any element is neither
// Int nor Real.
func (a Array) Floats() ([]float64, bool) {
	out := make([]float64, len(a))
	for i, obj := range a {
		v, ok := Number(obj)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Dict is a PDF dictionary keyed by name without the slash.
type Dict map[string]Object

func (Dict) Type() ObjectType { return ObjDict }
func (d Dict) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "/" + k + " " + objString(d[k])
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the raw value for key.
func (d Dict) Get(key string) Object {
	return d[key]
}

// Has reports whether key is present.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// GetName returns key as a Name.
func (d Dict) GetName(key string) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// GetInt returns key as an Int.
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetNumber returns key as a float, accepting Int or Real.
func (d Dict) GetNumber(key string) (float64, bool) {
	return Number(d[key])
}

// GetDict returns key as a Dict.
func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// GetArray returns key as an Array.
func (d Dict) GetArray(key string) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

// GetIndirectRef returns key as an IndirectRef.
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	v, ok := d[key].(IndirectRef)
	return v, ok
}

// IsType reports whether /Type equals name.
func (d Dict) IsType(name string) bool {
	t, ok := d.GetName("Type")
	return ok && string(t) == name
}

// Stream is a stream object: its dictionary and undecoded data.
type Stream struct {
	Dict Dict
	Data []byte
}

func (*Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// IndirectRef refers to object Number, generation Generation.
type IndirectRef struct {
	Number     int
	Generation int
}

func (IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject is a parsed "N G obj ... endobj" definition.
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

// Number converts an Int or Real to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

func objString(obj Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}
