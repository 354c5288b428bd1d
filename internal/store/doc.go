// Package store provides the schema record store: a named collection of
// payloads persisted as a single blob file.
//
// # Lifecycle
//
//   - Load decodes the file; a missing file yields an empty store, a corrupt
//     file is an error (never silently treated as empty)
//   - Put, Delete and Replace mutate the in-memory mapping only
//   - Persist re-encodes the whole mapping and atomically replaces the file
//
// # Invariants
//
//   - Names are non-empty and unique (they are the mapping keys)
//   - Payloads are deep-copied on the way in and out, so no caller can
//     mutate a stored record behind the store's back
//
// The store assumes one writer per file. Processes that may overlap should
// hold Lock for the duration of a load-modify-persist cycle.
package store
