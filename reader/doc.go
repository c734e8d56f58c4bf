// Package reader opens a PDF held in memory and resolves its objects.
//
// It ties the core parser, cross-reference loading and the page tree
// together:
//
//	r, err := reader.NewFromBytes(data)
//	if err != nil {
//	    return err
//	}
//	n, err := r.PageCount()
//
// # Recovery
//
// When the startxref chain is missing or points at the wrong place, or an
// object is not where the table says, the reader rebuilds its table with
// [core.RebuildXRef] once and retries. [Reader.Repaired] reports whether
// that happened.
//
// # Object Resolution
//
//   - GetObject(objNum) - load an object, including ones in object streams
//   - ResolveReference(ref) - resolve an IndirectRef
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//
// A Reader caches objects and is not safe for concurrent use.
package reader
