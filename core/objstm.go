package core

import (
	"fmt"
	"strconv"
)

// ObjectStream is a /Type /ObjStm stream holding several compressed objects.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	decoded []byte
	nums    []int
	offsets []int
}

// NewObjectStream validates the stream dictionary. Decoding happens on
// first access.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if !stream.Dict.IsType("ObjStm") {
		return nil, fmt.Errorf("stream is not an object stream")
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}
	return &ObjectStream{stream: stream, n: int(n), first: int(first)}, nil
}

// N returns the declared object count.
func (os *ObjectStream) N() int {
	return os.n
}

func (os *ObjectStream) load() error {
	if os.decoded != nil {
		return nil
	}
	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("object stream: %w", err)
	}
	if os.first > len(decoded) {
		return fmt.Errorf("object stream: /First %d beyond data length %d", os.first, len(decoded))
	}

	lex := NewLexer(decoded[:os.first], 0)
	nums := make([]int, 0, os.n)
	offsets := make([]int, 0, os.n)
	for i := 0; i < os.n; i++ {
		numTok, err1 := lex.NextToken()
		offTok, err2 := lex.NextToken()
		if err1 != nil || err2 != nil || numTok.Type != TokenInteger || offTok.Type != TokenInteger {
			break
		}
		num, _ := strconv.Atoi(string(numTok.Value))
		off, _ := strconv.Atoi(string(offTok.Value))
		nums = append(nums, num)
		offsets = append(offsets, off)
	}

	os.decoded = decoded
	os.nums = nums
	os.offsets = offsets
	return nil
}

// ObjectNumbers returns the object numbers listed in the stream header.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	return os.nums, nil
}

// GetObjectByIndex parses the object at position index.
func (os *ObjectStream) GetObjectByIndex(index int) (int, Object, error) {
	if err := os.load(); err != nil {
		return 0, nil, err
	}
	if index < 0 || index >= len(os.offsets) {
		return 0, nil, fmt.Errorf("object stream index %d out of range (%d objects)", index, len(os.offsets))
	}
	start := os.first + os.offsets[index]
	if start < os.first || start > len(os.decoded) {
		return 0, nil, fmt.Errorf("object stream offset %d out of range", os.offsets[index])
	}
	obj, err := NewParserAt(os.decoded, start).ParseObject()
	if err != nil {
		return 0, nil, fmt.Errorf("object %d in stream: %w", os.nums[index], err)
	}
	return os.nums[index], obj, nil
}

// GetObject finds objNum in the header and parses it.
func (os *ObjectStream) GetObject(objNum int) (Object, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	for i, n := range os.nums {
		if n == objNum {
			_, obj, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", objNum)
}
