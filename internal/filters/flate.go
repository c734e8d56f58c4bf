package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any PNG or TIFF predictor.
//
// Truncated input returns whatever was inflated before the break, which is
// how most viewers treat damaged xref streams.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, err
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}

	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	if columns < 1 || colors < 1 || bpc != 8 {
		return nil, fmt.Errorf("predictor %d: unsupported layout columns=%d colors=%d bpc=%d",
			predictor, columns, colors, bpc)
	}

	switch {
	case predictor == 2:
		return tiffPredict(out, columns, colors)
	case predictor >= 10 && predictor <= 15:
		return pngPredict(out, columns, colors)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, MaxDecodedSize+1))
	if n > MaxDecodedSize {
		return nil, ErrTooLarge
	}
	if err != nil {
		if buf.Len() > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return buf.Bytes(), nil
}

func tiffPredict(data []byte, columns, colors int) ([]byte, error) {
	rowSize := columns * colors
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}
	out := make([]byte, len(data))
	copy(out, data)
	for row := 0; row < len(out); row += rowSize {
		for i := row + colors; i < row+rowSize; i++ {
			out[i] += out[i-colors]
		}
	}
	return out, nil
}

// pngPredict reverses PNG row filters. Every row starts with its own filter
// type byte, so the /Predictor value (10-15) only signals "PNG".
func pngPredict(data []byte, columns, colors int) ([]byte, error) {
	bpp := colors
	rowLen := columns * colors
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		filter := data[r*stride]
		in := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]

		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			up := prev[i]
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}

			switch filter {
			case 0:
				cur[i] = in[i]
			case 1:
				cur[i] = in[i] + left
			case 2:
				cur[i] = in[i] + up
			case 3:
				cur[i] = in[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = in[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("row %d: unknown PNG filter %d", r, filter)
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
