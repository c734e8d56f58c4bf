package pdfcount

import (
	"fmt"
	"math"

	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/scan"
)

const (
	startXRefWindow = 1024
	trailerWindow   = 5000
	dictWindow      = 2000
	objectWindow    = 2000

	// object numbers above this are treated as overflow
	maxObjectNumber = math.MaxInt32
)

var (
	kwStartXRef = []byte("startxref")
	kwTrailer   = []byte("trailer")
	kwEndObj    = []byte("endobj")
	keyRoot     = []byte("/Root")
	keyPages    = []byte("/Pages")
	keyCount    = []byte("/Count")
)

type fastState int

const (
	stateStart fastState = iota
	stateLocateStartXref
	stateReadXrefOffset
	stateLocateTrailer
	stateExtractRootRef
	stateLocateRootObject
	stateExtractPagesRef
	stateLocatePagesObject
	stateExtractCount
	stateDone
	stateFail
)

var stateNames = [...]string{
	stateStart:             "start",
	stateLocateStartXref:   "locate-startxref",
	stateReadXrefOffset:    "read-xref-offset",
	stateLocateTrailer:     "locate-trailer",
	stateExtractRootRef:    "extract-root-ref",
	stateLocateRootObject:  "locate-root-object",
	stateExtractPagesRef:   "extract-pages-ref",
	stateLocatePagesObject: "locate-pages-object",
	stateExtractCount:      "extract-count",
	stateDone:              "done",
	stateFail:              "fail",
}

func (s fastState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// fastPathError records the state in which the fast path gave up.
type fastPathError struct {
	State fastState
	Err   error
}

func (e *fastPathError) Error() string {
	return fmt.Sprintf("fast path failed at %s: %v", e.State, e.Err)
}

func (e *fastPathError) Unwrap() error {
	return e.Err
}

// fastPath follows startxref to the xref section's trailer, then /Root to
// the catalog and /Pages to the root Pages node, and reads its /Count.
// Objects are located textually; generation 0 is assumed.
type fastPath struct {
	data  []byte
	state fastState

	pos   int    // cursor into data for the current state
	ref   uint64 // object number being followed
	body  []byte // window of the current object or trailer
	count uint64
}

func fastPathCount(data []byte) (int, error) {
	fp := &fastPath{data: data, state: stateStart}
	log := logging.Logger()

	for {
		next, err := fp.step()
		if err != nil {
			log.Debug("fast path failed", "state", fp.state.String(), "error", err)
			failed := fp.state
			fp.state = stateFail
			return 0, &fastPathError{State: failed, Err: err}
		}
		log.Debug("fast path transition", "from", fp.state.String(), "to", next.String())
		fp.state = next
		if next == stateDone {
			return int(fp.count), nil
		}
	}
}

func (fp *fastPath) step() (fastState, error) {
	h := fp.data
	switch fp.state {
	case stateStart:
		if len(h) == 0 {
			return stateFail, fmt.Errorf("empty input: %w", ErrNotFound)
		}
		return stateLocateStartXref, nil

	case stateLocateStartXref:
		idx, ok := scan.FindLast(h, kwStartXRef, len(h)-startXRefWindow)
		if !ok {
			return stateFail, fmt.Errorf("no startxref in final %d bytes: %w", startXRefWindow, ErrNotFound)
		}
		fp.pos = idx + len(kwStartXRef)
		return stateReadXrefOffset, nil

	case stateReadXrefOffset:
		off, err := readUint(h, fp.pos, uint64(math.MaxInt32))
		if err != nil {
			return stateFail, fmt.Errorf("xref offset: %w", err)
		}
		if off >= uint64(len(h)) {
			return stateFail, fmt.Errorf("xref offset %d beyond end of file: %w", off, ErrMalformed)
		}
		fp.pos = int(off)
		return stateLocateTrailer, nil

	case stateLocateTrailer:
		idx, ok := scan.FindIn(h, kwTrailer, fp.pos, fp.pos+trailerWindow)
		if !ok {
			return stateFail, fmt.Errorf("no trailer within %d bytes of xref: %w", trailerWindow, ErrNotFound)
		}
		fp.body = scan.Window(h, idx+len(kwTrailer), dictWindow)
		return stateExtractRootRef, nil

	case stateExtractRootRef:
		ref, err := refAfter(fp.body, keyRoot)
		if err != nil {
			return stateFail, fmt.Errorf("trailer /Root: %w", err)
		}
		fp.ref = ref
		return stateLocateRootObject, nil

	case stateLocateRootObject:
		body, err := objectBody(h, fp.ref)
		if err != nil {
			return stateFail, fmt.Errorf("catalog: %w", err)
		}
		fp.body = body
		return stateExtractPagesRef, nil

	case stateExtractPagesRef:
		ref, err := refAfter(fp.body, keyPages)
		if err != nil {
			return stateFail, fmt.Errorf("catalog /Pages: %w", err)
		}
		fp.ref = ref
		return stateLocatePagesObject, nil

	case stateLocatePagesObject:
		body, err := objectBody(h, fp.ref)
		if err != nil {
			return stateFail, fmt.Errorf("pages root: %w", err)
		}
		fp.body = body
		return stateExtractCount, nil

	case stateExtractCount:
		idx, ok := scan.Find(fp.body, keyCount, 0)
		if !ok {
			return stateFail, fmt.Errorf("pages root has no /Count: %w", ErrNotFound)
		}
		n, err := readUint(fp.body, idx+len(keyCount), MaxPageCount)
		if err != nil {
			return stateFail, fmt.Errorf("/Count: %w", err)
		}
		if n == 0 {
			return stateFail, fmt.Errorf("/Count is 0: %w", ErrNotFound)
		}
		fp.count = n
		return stateDone, nil
	}
	return stateFail, fmt.Errorf("unexpected state %s: %w", fp.state, ErrMalformed)
}

// readUint parses the integer after optional whitespace at from. A run of
// digits that exceeds bound is ErrOverflow; no digits is ErrMalformed.
func readUint(h []byte, from int, bound uint64) (uint64, error) {
	start := scan.SkipWhitespace(h, from)
	v, _, ok := scan.ParseUint(h, start, bound)
	if ok {
		return v, nil
	}
	if start < len(h) && scan.IsDigit(h[start]) {
		return 0, ErrOverflow
	}
	return 0, ErrMalformed
}

// refAfter reads the object number of the reference following key.
func refAfter(body, key []byte) (uint64, error) {
	idx, ok := scan.Find(body, key, 0)
	if !ok {
		return 0, fmt.Errorf("%s not found: %w", key, ErrNotFound)
	}
	return readUint(body, idx+len(key), maxObjectNumber)
}

// objectBody returns up to objectWindow bytes after "<ref> 0 obj", cut at
// the first endobj.
func objectBody(h []byte, ref uint64) ([]byte, error) {
	idx, ok := scan.FindObject(h, ref)
	if !ok {
		return nil, fmt.Errorf("object %d not found: %w", ref, ErrMalformed)
	}
	body := scan.Window(h, idx+len(scan.ObjectMarker(ref)), objectWindow)
	if end, ok := scan.Find(body, kwEndObj, 0); ok {
		body = body[:end]
	}
	return body, nil
}
