// Package syncer reconciles auxiliary store files into the primary store.
//
// Synchronization is one-way and lossless: auxiliary records are added,
// identical records are skipped, and conflicting records are kept under a
// fresh "_copy" name instead of overwriting anything. Conflict naming always
// consults the mapping accumulated so far in the run, so the result never
// depends on directory enumeration order for uniqueness, and re-running with
// unchanged inputs is a no-op.
package syncer
