// Package payload provides the value model for schema payloads.
//
// A payload is an opaque structured document: a nested composition of maps,
// sequences and scalars. The store never interprets payload contents; it only
// needs to copy, compare, encode and hash them. This package has no internal
// imports so every other package can depend on it.
//
// Key design constraints:
//   - Value is a sealed interface; a nil Value is never valid inside a document
//   - Int and Float are distinct variants so integers survive round trips exactly
//   - Equal is structural; Int(1) and Float(1) are equal, as are maps with the same entries
//   - Clone is deep; stored payloads never share backing maps or slices with callers
package payload
