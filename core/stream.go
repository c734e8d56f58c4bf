package core

import (
	"fmt"

	"github.com/tsawler/pagecount/internal/filters"
)

// Decode applies the stream's /Filter chain with matching /DecodeParms.
func (s *Stream) Decode() ([]byte, error) {
	var names []Name
	switch f := s.Dict.Get("Filter").(type) {
	case nil, Null:
		return s.Data, nil
	case Name:
		names = []Name{f}
	case Array:
		for i, v := range f {
			n, ok := v.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %s, not a name", i, objString(v))
			}
			names = append(names, n)
		}
	default:
		return nil, fmt.Errorf("invalid /Filter %s", f.String())
	}

	data := s.Data
	for i, name := range names {
		var err error
		data, err = filters.Decode(string(name), data, s.decodeParams(i))
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return data, nil
}

// decodeParams returns the parameters for the i-th filter. /DecodeParms is
// either one dictionary or an array parallel to /Filter.
func (s *Stream) decodeParams(i int) filters.Params {
	var dict Dict
	switch v := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		dict = v
	case Array:
		dict, _ = v.Get(i).(Dict)
	}
	if dict == nil {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		}
	}
	return params
}
