package pdfcount

// Strategy identifies how a page count was obtained, ordered from most to
// least trustworthy. The zero value means no strategy succeeded.
type Strategy int

const (
	StrategyNone Strategy = iota
	SpecFollowing
	TypePagesProximity
	GlobalMaxCount
	ExpandedWindow
	CountWithoutSlash
	FullParse

	// External marks a count reported by an ExternalCounter. It is not
	// part of Extract's chain.
	External
)

// String returns a lowercase name for the strategy.
func (s Strategy) String() string {
	switch s {
	case SpecFollowing:
		return "spec-following"
	case TypePagesProximity:
		return "type-pages-proximity"
	case GlobalMaxCount:
		return "global-max-count"
	case ExpandedWindow:
		return "expanded-window"
	case CountWithoutSlash:
		return "count-without-slash"
	case FullParse:
		return "full-parse"
	case External:
		return "external"
	default:
		return "none"
	}
}

// Verified reports whether the strategy follows the document structure
// rather than guessing from patterns.
func (s Strategy) Verified() bool {
	return s == SpecFollowing || s == FullParse || s == External
}

// Heuristic reports whether s is one of the pattern-search strategies.
func (s Strategy) Heuristic() bool {
	return s >= TypePagesProximity && s <= CountWithoutSlash
}
