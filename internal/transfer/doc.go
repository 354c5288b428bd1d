// Package transfer moves single records between a store and standalone
// transfer files, and copies records within a store.
//
// A transfer file uses the store encoding and normally holds one entry,
// named after the record it carries. Every successful operation persists
// the whole store; a failed persist leaves the in-memory store as it was.
package transfer
