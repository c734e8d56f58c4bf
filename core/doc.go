// Package core parses PDF syntax from an in-memory byte slice.
//
// It covers the eight basic object types, streams, indirect references,
// cross-reference tables and streams (PDF 1.5+), object streams, and a
// repair scan for files whose xref data is missing or damaged.
//
// # Object Types
//
//   - [Null], [Bool], [Int], [Real], [String], [Name]
//   - [Array], [Dict]
//   - [Stream] (dictionary plus raw data) and [IndirectRef]
//
// # Parsing
//
// A [Parser] reads objects starting at any offset of the buffer:
//
//	p := core.NewParserAt(data, offset)
//	obj, err := p.ParseIndirectObject()
//
// Nesting is capped at [MaxNestingDepth] so hostile input cannot exhaust
// the stack.
//
// # Cross-Reference Data
//
// [XRefParser] locates startxref, parses classic tables and xref streams,
// follows /Prev and /XRefStm chains, and [RebuildXRef] recovers a table by
// scanning for "N G obj" markers when the chain is broken.
package core
