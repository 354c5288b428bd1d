package payload

import (
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing a schema payload node.
// Only Null, Bool, Int, Float, String, Seq, and Map implement this.
type Value interface {
	payloadValue() // Sealed - only these types implement it
}

// Null represents an explicit null value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) payloadValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) payloadValue() {}

// Int represents an integer number.
type Int int64

func (Int) payloadValue() {}

// Float represents a non-integer (or explicitly floating) number.
// Must be finite; NaN and infinities are never produced by the parser or codec.
type Float float64

func (Float) payloadValue() {}

// String represents a string value.
type String string

func (String) payloadValue() {}

// Seq represents an ordered sequence of values.
type Seq []Value

func (Seq) payloadValue() {}

// Map represents a string-keyed mapping of values.
// Use SortedKeys() for deterministic iteration.
type Map map[string]Value

func (Map) payloadValue() {}

// Kind names the variant of a Value.
type Kind string

const (
	KindNull   Kind = "null"
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindSeq    Kind = "seq"
	KindMap    Kind = "map"
)

// KindOf returns the variant name of v. A nil Value reports "invalid".
func KindOf(v Value) Kind {
	switch v.(type) {
	case Null:
		return KindNull
	case Bool:
		return KindBool
	case Int:
		return KindInt
	case Float:
		return KindFloat
	case String:
		return KindString
	case Seq:
		return KindSeq
	case Map:
		return KindMap
	default:
		return "invalid"
	}
}

// Pair is a key-value pair for Map construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewMap(P("a", Int(1)), P("b", String("x")))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewMap creates a Map from key-value pairs. Later pairs win on duplicate keys.
func NewMap(pairs ...Pair) Map {
	m := make(Map, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// NewSeq creates a Seq from values.
func NewSeq(vals ...Value) Seq {
	return Seq(vals)
}

// SortedKeys returns keys in UTF-16 code unit order (RFC 8785).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral characters.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// Equal prefix: shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Equal reports whether a and b are structurally equal.
//
// Numbers compare by value across Int and Float, so Int(1) equals Float(1.0);
// every other variant only equals itself. Map key order is irrelevant,
// Seq order is significant.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return intEqualsFloat(int64(av), float64(bv))
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return intEqualsFloat(int64(bv), float64(av))
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Seq:
		bv, ok := b.(Seq)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// intEqualsFloat compares without converting the int to float64, which
// would round large values.
func intEqualsFloat(i int64, f float64) bool {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return false
	}
	return int64(f) == i
}

// Clone returns a deep copy of v. Mutating the result never affects v.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Seq:
		if val == nil {
			return Seq(nil)
		}
		out := make(Seq, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Map:
		if val == nil {
			return Map(nil)
		}
		out := make(Map, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		// Scalars are immutable values.
		return v
	}
}

// CloneMap deep-copies a name -> payload mapping.
func CloneMap(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Validate checks that v and every nested value is a known variant and that
// floats are finite.
func Validate(v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil value")
	case Null, Bool, Int, String:
		return nil
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return fmt.Errorf("non-finite float %v", float64(val))
		}
		return nil
	case Seq:
		for i, elem := range val {
			if err := Validate(elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	case Map:
		for k, elem := range val {
			if err := Validate(elem); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown value type %T", v)
	}
}
