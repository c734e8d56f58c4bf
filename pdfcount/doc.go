// Package pdfcount recovers the page count and representative page sizes
// of a PDF held in memory.
//
// [Extract] tries strategies from most to least trustworthy and stops at
// the first plausible count:
//
//  1. SpecFollowing walks startxref, trailer, /Root, /Pages and /Count
//     textually, the way a conforming reader would.
//  2. TypePagesProximity, GlobalMaxCount, ExpandedWindow and
//     CountWithoutSlash are pattern searches for /Count values.
//  3. FullParse opens the full object model (package reader) and counts
//     the leaves of the page tree.
//
// Heuristic results are not verified against the page tree. They assume the
// largest /Count belongs to the root Pages node, which outline /Count entries
// or unusual trees can break; such results carry a warning note and
// [Result.Verified] reports false.
//
// [CountExternal] asks an [ExternalCounter], such as a script or a full
// renderer, instead. Its results report the External strategy.
//
// Every scan is bounds-checked. Extract never panics, holds no global state
// and may be called concurrently.
package pdfcount
