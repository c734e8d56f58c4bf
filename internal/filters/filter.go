package filters

import (
	"errors"
	"fmt"
)

// MaxDecodedSize caps the output of any single decode call.
const MaxDecodedSize = 64 << 20

var (
	// ErrUnsupported is returned for filters this package does not implement.
	ErrUnsupported = errors.New("unsupported filter")

	// ErrTooLarge is returned when decoded output would exceed MaxDecodedSize.
	ErrTooLarge = errors.New("decoded stream too large")
)

// Params holds decode parameters from a /DecodeParms dictionary. Values are
// int, float64 or bool.
type Params map[string]interface{}

// Decode applies the named filter. Abbreviated inline-image names are
// accepted.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return FlateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return ASCII85Decode(data)
	case "CCITTFaxDecode", "CCF":
		return CCITTFaxDecode(data, params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}

func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

func getBoolParam(params Params, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
