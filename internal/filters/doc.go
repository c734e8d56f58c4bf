// Package filters decodes PDF stream data.
//
// Only the filters needed to reach cross-reference streams and object
// streams are implemented, plus CCITTFaxDecode for scanned documents:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{
//	    "Predictor": 12,
//	    "Columns":   5,
//	})
//
// Output is capped at MaxDecodedSize so a hostile stream cannot exhaust
// memory.
package filters
