package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data. K < 0 selects Group 4;
// Rows of 0 lets the decoder find the image height itself.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows,
		&ccitt.Options{Invert: getBoolParam(params, "BlackIs1", false)})

	out, err := io.ReadAll(io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecodedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}
