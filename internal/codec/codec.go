package codec

import (
	"errors"
	"fmt"
	"math"
	"os"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/schemastore/internal/payload"
)

// ErrCorruptStore indicates bytes that are present but are not a valid
// encoding of a name -> payload mapping.
var ErrCorruptStore = errors.New("corrupt store")

// CorruptError carries the reason a blob was rejected.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCorruptStore, e.Reason)
}

func (e *CorruptError) Unwrap() error {
	return ErrCorruptStore
}

func corrupt(format string, args ...any) error {
	return &CorruptError{Reason: fmt.Sprintf(format, args...)}
}

// Header of every store blob.
const (
	Magic         = "SCHS"
	FormatVersion = 1
)

// Field numbers.
const (
	fieldEntry protowire.Number = 1 // store and map entries

	entryKey   protowire.Number = 1
	entryValue protowire.Number = 2

	valueNull   protowire.Number = 1
	valueBool   protowire.Number = 2
	valueInt    protowire.Number = 3
	valueFloat  protowire.Number = 4
	valueString protowire.Number = 5
	valueSeq    protowire.Number = 6
	valueMap    protowire.Number = 7

	seqElem protowire.Number = 1
)

// maxDepth bounds payload nesting so a hostile blob cannot exhaust the stack.
const maxDepth = 1000

// Encode serializes a name -> payload mapping.
//
// Names and map keys are written in sorted order, so equal mappings always
// produce identical bytes. An error is only possible for input that no
// decode or parse could have produced (empty record names, nil values,
// non-finite floats, invalid UTF-8).
func Encode(records map[string]payload.Value) ([]byte, error) {
	if _, ok := records[""]; ok {
		return nil, fmt.Errorf("encode: record name is empty")
	}
	b := make([]byte, 0, 64)
	b = append(b, Magic...)
	b = append(b, FormatVersion)

	entries, err := appendEntries(nil, payload.Map(records), 0)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(b, entries...), nil
}

// EncodeOne serializes a single-record mapping, the format of transfer files.
func EncodeOne(name string, v payload.Value) ([]byte, error) {
	return Encode(map[string]payload.Value{name: v})
}

func appendEntries(b []byte, m payload.Map, depth int) ([]byte, error) {
	for _, k := range m.SortedKeys() {
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("key %q: invalid UTF-8", k)
		}
		entry := protowire.AppendTag(nil, entryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)

		val, err := appendValue(nil, m[k], depth)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		entry = protowire.AppendTag(entry, entryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, val)

		b = protowire.AppendTag(b, fieldEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

func appendValue(b []byte, v payload.Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}
	switch val := v.(type) {
	case payload.Null:
		b = protowire.AppendTag(b, valueNull, protowire.VarintType)
		b = protowire.AppendVarint(b, 0)
	case payload.Bool:
		b = protowire.AppendTag(b, valueBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(bool(val)))
	case payload.Int:
		b = protowire.AppendTag(b, valueInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(val)))
	case payload.Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite float %v", f)
		}
		b = protowire.AppendTag(b, valueFloat, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case payload.String:
		if !utf8.ValidString(string(val)) {
			return nil, fmt.Errorf("string: invalid UTF-8")
		}
		b = protowire.AppendTag(b, valueString, protowire.BytesType)
		b = protowire.AppendString(b, string(val))
	case payload.Seq:
		var inner []byte
		for i, elem := range val {
			eb, err := appendValue(nil, elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			inner = protowire.AppendTag(inner, seqElem, protowire.BytesType)
			inner = protowire.AppendBytes(inner, eb)
		}
		b = protowire.AppendTag(b, valueSeq, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case payload.Map:
		inner, err := appendEntries(nil, val, depth+1)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, valueMap, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	return b, nil
}

// Decode parses a store blob. Any structural problem, including a record
// with an empty name, is reported as an error wrapping ErrCorruptStore; an
// empty blob is corrupt too, since a store that was never written has no
// file at all.
func Decode(data []byte) (map[string]payload.Value, error) {
	if len(data) < len(Magic)+1 || string(data[:len(Magic)]) != Magic {
		return nil, corrupt("missing %q header", Magic)
	}
	if v := data[len(Magic)]; v != FormatVersion {
		return nil, corrupt("unsupported format version %d", v)
	}

	m, err := consumeEntries(data[len(Magic)+1:], 0)
	if err != nil {
		return nil, corrupt("%v", err)
	}
	// Payload map keys may be empty, record names may not.
	if _, ok := m[""]; ok {
		return nil, corrupt("record with empty name")
	}
	return map[string]payload.Value(m), nil
}

// ReadFile decodes the store file at path. A missing file is returned as an
// error satisfying errors.Is(err, fs.ErrNotExist); callers decide whether
// that means "empty".
func ReadFile(path string) (map[string]payload.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func consumeEntries(b []byte, depth int) (payload.Map, error) {
	m := make(payload.Map)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		if num != fieldEntry || typ != protowire.BytesType {
			return nil, fmt.Errorf("unexpected field %d (wire type %d)", num, typ)
		}
		b = b[n:]

		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		key, val, err := consumeEntry(raw, depth)
		if err != nil {
			return nil, err
		}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		m[key] = val
	}
	return m, nil
}

func consumeEntry(b []byte, depth int) (string, payload.Value, error) {
	var (
		key           string
		val           payload.Value
		haveKey, have bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		if typ != protowire.BytesType {
			return "", nil, fmt.Errorf("entry field %d: wire type %d", num, typ)
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == entryKey && !haveKey:
			if !utf8.Valid(raw) {
				return "", nil, fmt.Errorf("entry key: invalid UTF-8")
			}
			key, haveKey = string(raw), true
		case num == entryValue && !have:
			v, err := consumeValue(raw, depth)
			if err != nil {
				if haveKey {
					return "", nil, fmt.Errorf("key %q: %w", key, err)
				}
				return "", nil, err
			}
			val, have = v, true
		default:
			return "", nil, fmt.Errorf("unexpected or repeated entry field %d", num)
		}
	}
	if !haveKey || !have {
		return "", nil, fmt.Errorf("incomplete entry")
	}
	return key, val, nil
}

func consumeValue(b []byte, depth int) (payload.Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	b = b[n:]

	var (
		val payload.Value
		err error
	)
	switch {
	case num == valueNull && typ == protowire.VarintType:
		var x uint64
		x, n = protowire.ConsumeVarint(b)
		if n >= 0 && x != 0 {
			err = fmt.Errorf("null with payload %d", x)
		}
		val = payload.Null{}
	case num == valueBool && typ == protowire.VarintType:
		var x uint64
		x, n = protowire.ConsumeVarint(b)
		if n >= 0 && x > 1 {
			err = fmt.Errorf("bool out of range: %d", x)
		}
		val = payload.Bool(protowire.DecodeBool(x))
	case num == valueInt && typ == protowire.VarintType:
		var x uint64
		x, n = protowire.ConsumeVarint(b)
		val = payload.Int(protowire.DecodeZigZag(x))
	case num == valueFloat && typ == protowire.Fixed64Type:
		var x uint64
		x, n = protowire.ConsumeFixed64(b)
		f := math.Float64frombits(x)
		if n >= 0 && (math.IsNaN(f) || math.IsInf(f, 0)) {
			err = fmt.Errorf("non-finite float")
		}
		val = payload.Float(f)
	case num == valueString && typ == protowire.BytesType:
		var raw []byte
		raw, n = protowire.ConsumeBytes(b)
		if n >= 0 && !utf8.Valid(raw) {
			err = fmt.Errorf("string: invalid UTF-8")
		}
		val = payload.String(raw)
	case num == valueSeq && typ == protowire.BytesType:
		var raw []byte
		raw, n = protowire.ConsumeBytes(b)
		if n >= 0 {
			val, err = consumeSeq(raw, depth+1)
		}
	case num == valueMap && typ == protowire.BytesType:
		var raw []byte
		raw, n = protowire.ConsumeBytes(b)
		if n >= 0 {
			val, err = consumeEntries(raw, depth+1)
		}
	default:
		return nil, fmt.Errorf("unknown value field %d (wire type %d)", num, typ)
	}
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, fmt.Errorf("%d trailing bytes after value", len(b)-n)
	}
	return val, nil
}

func consumeSeq(b []byte, depth int) (payload.Seq, error) {
	seq := payload.Seq{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		if num != seqElem || typ != protowire.BytesType {
			return nil, fmt.Errorf("unexpected sequence field %d (wire type %d)", num, typ)
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		v, err := consumeValue(raw, depth)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", len(seq), err)
		}
		seq = append(seq, v)
	}
	return seq, nil
}
