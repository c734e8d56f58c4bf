package pdfcount

import (
	"fmt"

	"github.com/tsawler/pagecount/scan"
)

// countScan is a configurable /Count search. With an anchor, only windows
// around each anchor occurrence are searched; without one, the whole
// buffer is. The result is the largest plausible count found.
type countScan struct {
	strategy Strategy

	anchor        []byte
	before, after int

	// pattern precedes the digits; skip lists bytes tolerated between the
	// pattern and the digits in addition to whitespace.
	pattern []byte
	skip    []byte

	// bare requires pattern to be preceded by whitespace or '/'.
	bare bool

	// firstPerWindow stops at the first plausible count in each window.
	firstPerWindow bool
}

// heuristics run in this order after the fast path fails.
var heuristics = []countScan{
	{
		strategy:       TypePagesProximity,
		anchor:         keyPages,
		before:         256,
		after:          2000,
		pattern:        keyCount,
		firstPerWindow: true,
	},
	{
		strategy: GlobalMaxCount,
		pattern:  keyCount,
		skip:     []byte("()<>[]"),
	},
	{
		strategy:       ExpandedWindow,
		anchor:         keyPages,
		before:         2000,
		after:          5000,
		pattern:        keyCount,
		skip:           []byte("()<>[]:"),
		firstPerWindow: true,
	},
	{
		strategy: CountWithoutSlash,
		pattern:  []byte("Count"),
		skip:     []byte("()<>[]:"),
		bare:     true,
	},
}

// run returns the largest count in [1, MaxPageCount] the scan finds.
func (c countScan) run(h []byte) (int, error) {
	var best uint64

	if c.anchor == nil {
		best = c.scanRange(h, 0, len(h))
	} else {
		from := 0
		anchors := 0
		for {
			idx, ok := scan.Find(h, c.anchor, from)
			if !ok {
				break
			}
			anchors++
			if n := c.scanRange(h, idx-c.before, idx+len(c.anchor)+c.after); n > best {
				best = n
			}
			from = idx + 1
		}
		if anchors == 0 {
			return 0, fmt.Errorf("no %s anchor: %w", c.anchor, ErrNotFound)
		}
	}

	if best == 0 {
		return 0, fmt.Errorf("no plausible %s value: %w", c.pattern, ErrNotFound)
	}
	return int(best), nil
}

// scanRange returns the best count among pattern matches lying in
// h[from:to]. Digits may run past to.
func (c countScan) scanRange(h []byte, from, to int) uint64 {
	var best uint64
	pos := from
	for {
		idx, ok := scan.FindIn(h, c.pattern, pos, to)
		if !ok {
			return best
		}
		pos = idx + 1

		if c.bare && idx > 0 && !scan.IsWhitespace(h[idx-1]) && h[idx-1] != '/' {
			continue
		}
		start := scan.SkipLenient(h, idx+len(c.pattern), c.skip)
		n, _, ok := scan.ParseUint(h, start, MaxPageCount)
		if !ok || n == 0 {
			continue
		}
		if c.firstPerWindow {
			return n
		}
		if n > best {
			best = n
		}
	}
}
