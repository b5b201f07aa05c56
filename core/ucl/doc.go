// Package ucl implements the Unified Content Language, a small textual
// command language for mutating documents.
//
// Two commands exist:
//
//	EDIT <blockId> SET <path> = <literal>
//	APPEND <parentId> <type> [<language>] :: <literal>
//
// Parse turns text into a Command without looking at any document.
// Executor.Execute parses and applies a command and returns the ids of the
// blocks it touched. A command either fully succeeds or leaves the document
// unchanged.
package ucl
