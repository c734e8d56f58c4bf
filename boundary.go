package pagecount

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
)

type errorJSON struct {
	Error    string `json:"error"`
	Detected string `json:"detected,omitempty"`
}

// EstimateJSON estimates the page count of data and returns the result as a
// JSON object:
//
//	{"page_count":3,"page_sizes":[{"width_mm":210,"height_mm":297},...],"notes":[...]}
//
// Failures are reported in the returned JSON, never as a Go error:
//
//	{"error":"...","detected":"pdf"}
//
// optionsJSON is decoded with ParseOptions; invalid options fall back to the
// defaults. extra options are applied after it.
func EstimateJSON(data []byte, filename, optionsJSON string, extra ...Option) string {
	opts := append([]Option{WithOptions(ParseOptions(optionsJSON))}, extra...)
	return New(opts...).EstimateJSON(context.Background(), data, filename)
}

// EstimateJSON is Estimate with the result or failure rendered as JSON in
// the form documented on the package-level EstimateJSON.
func (e *Estimator) EstimateJSON(ctx context.Context, data []byte, filename string) string {
	res, err := e.Estimate(ctx, data, filename)
	if err != nil {
		return errorResponse(err)
	}
	out, err := json.Marshal(res)
	if err != nil {
		return marshalError(errorJSON{Error: "serialization failed"})
	}
	return string(out)
}

// EstimateBase64JSON is EstimateJSON for standard base64-encoded data.
func EstimateBase64JSON(b64, filename, optionsJSON string, extra ...Option) string {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return marshalError(errorJSON{Error: "base64 decode failed: " + err.Error()})
	}
	return EstimateJSON(data, filename, optionsJSON, extra...)
}

// errorResponse renders err with the detected format when it is an
// *EstimateError.
func errorResponse(err error) string {
	var ee *EstimateError
	if !errors.As(err, &ee) {
		return marshalError(errorJSON{Error: err.Error()})
	}
	msg := ee.Err.Error()
	if errors.Is(ee.Err, ErrUnsupportedFormat) {
		msg = "Unsupported or unrecognized format: " + ee.Detected
	}
	return marshalError(errorJSON{Error: msg, Detected: ee.Detected})
}

func marshalError(e errorJSON) string {
	out, err := json.Marshal(e)
	if err != nil {
		return `{"error":"serialization failed"}`
	}
	return string(out)
}
