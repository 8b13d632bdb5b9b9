// Package message defines the canonical message record shared by all
// collaborating units and the canonicalizer that normalizes heterogeneous
// upstream message shapes into it.
//
// The canonicalizer is total: every input produces a Message. Recognized
// shapes are a closed set of variants (AIMessage, HumanMessage, SystemMessage,
// ToolMessage) sealed by an unexported marker method, mirroring how content
// parts are modelled elsewhere in the module. Provider SDK objects are
// translated into those variants by Recognizers registered on the
// Canonicalizer; anything unrecognized degrades to a system-typed record
// carrying the value's string form.
package message
