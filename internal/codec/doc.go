// Package codec encodes and decodes schema store files.
//
// A store file is a single binary blob holding a mapping of record name to
// payload. The layout is the 4-byte magic "SCHS", one format version byte,
// then a sequence of protobuf-wire encoded entries:
//
//	entry  = 1:bytes{ 1:string name, 2:bytes value }
//	value  = exactly one of
//	         1:varint   null (always 0)
//	         2:varint   bool
//	         3:varint   int (zigzag)
//	         4:fixed64  float (IEEE 754 bits)
//	         5:bytes    string (UTF-8)
//	         6:bytes    seq  { repeated 1:bytes value }
//	         7:bytes    map  { repeated entry }
//
// Entries are written in sorted key order so encoding is deterministic.
// Decoding is strict: unknown fields, repeated keys, trailing bytes and
// invalid UTF-8 are all reported as ErrCorruptStore.
package codec
