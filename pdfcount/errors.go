package pdfcount

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means no chain anchor or count was located.
	ErrNotFound = errors.New("page count not found")

	// ErrMalformed means an anchor was found but the offset or object it
	// refers to is out of range or has an unexpected shape.
	ErrMalformed = errors.New("malformed structure")

	// ErrOverflow means a parsed integer exceeded its sanity bound.
	ErrOverflow = errors.New("value exceeds sanity bound")

	// ErrNonUTF8 is reserved for string-oriented strategies. Every built-in
	// strategy works on bytes and never returns it.
	ErrNonUTF8 = errors.New("input is not valid UTF-8")

	// ErrParserFailure means the full object model rejected the document.
	ErrParserFailure = errors.New("full parser failed")

	// ErrExternalUnavailable is returned by an ExternalCounter that cannot
	// serve a request. Callers fall back to Extract.
	ErrExternalUnavailable = errors.New("external page counter unavailable")
)

// ExtractError is returned by Extract when every strategy failed. It wraps
// ErrNotFound and each strategy's failure.
type ExtractError struct {
	Failures []StrategyError
}

// StrategyError is the failure of one strategy.
type StrategyError struct {
	Strategy Strategy
	Err      error
}

func (e StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e StrategyError) Unwrap() error {
	return e.Err
}

func (e *ExtractError) add(s Strategy, err error) {
	e.Failures = append(e.Failures, StrategyError{Strategy: s, Err: err})
}

func (e *ExtractError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%v (%s)", ErrNotFound, strings.Join(parts, "; "))
}

// Unwrap returns ErrNotFound followed by the strategy failures, so
// errors.Is matches any of them.
func (e *ExtractError) Unwrap() []error {
	errs := []error{ErrNotFound}
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
