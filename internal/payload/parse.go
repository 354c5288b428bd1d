package payload

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrParse is returned when payload text cannot be turned into a document.
var ErrParse = errors.New("payload parse error")

// ParseError describes why payload text was rejected.
type ParseError struct {
	Line    int // 1-based, 0 when unknown
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrParse, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrParse, e.Message)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Parse converts structured text into a Value.
//
// Accepted syntaxes are JSON, YAML, and Python literal dictionaries as
// produced by editors that print their state with repr():
//
//	{'type': 'Feed', 'value': None, 'twoColumn': False}
//
// Single-quoted strings containing backslashes are decoded with Python's
// escape rules (\n, \t, \xNN, \uNNNN, \'), so repr() output round-trips.
// Unquoted None, True and False map to null and booleans. Quoted forms stay
// strings. Aliases and custom tags are rejected.
func Parse(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Message: "empty input"}
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(rewritePythonStrings(text)), &root); err != nil {
		return nil, &ParseError{Message: strings.TrimPrefix(err.Error(), "yaml: ")}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 {
		return nil, &ParseError{Message: "expected exactly one document"}
	}
	return fromNode(root.Content[0])
}

// ParseDocument is like Parse but requires the top level to be a mapping,
// which is the only shape a schema record may have.
func ParseDocument(text string) (Map, error) {
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Map)
	if !ok {
		return nil, &ParseError{Message: fmt.Sprintf("expected a mapping at top level, got %s", KindOf(v))}
	}
	return m, nil
}

func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := make(Map, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &ParseError{Line: keyNode.Line, Message: "mapping keys must be scalars"}
			}
			key := keyNode.Value
			if _, dup := m[key]; dup {
				return nil, &ParseError{Line: keyNode.Line, Message: fmt.Sprintf("duplicate key %q", key)}
			}
			val, err := fromNode(valNode)
			if err != nil {
				return nil, err
			}
			m[key] = val
		}
		return m, nil

	case yaml.SequenceNode:
		seq := make(Seq, 0, len(n.Content))
		for _, elem := range n.Content {
			val, err := fromNode(elem)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil

	case yaml.ScalarNode:
		return fromScalar(n)

	case yaml.AliasNode:
		return nil, &ParseError{Line: n.Line, Message: "aliases are not supported"}

	default:
		return nil, &ParseError{Line: n.Line, Message: "unsupported node"}
	}
}

const quotedStyles = yaml.SingleQuotedStyle | yaml.DoubleQuotedStyle | yaml.LiteralStyle | yaml.FoldedStyle

func fromScalar(n *yaml.Node) (Value, error) {
	plain := n.Style&(quotedStyles|yaml.TaggedStyle) == 0
	if plain {
		switch n.Value {
		case "None":
			return Null{}, nil
		case "True":
			return Bool(true), nil
		case "False":
			return Bool(false), nil
		}
	}

	switch n.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, &ParseError{Line: n.Line, Message: err.Error()}
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, &ParseError{Line: n.Line, Message: fmt.Sprintf("integer out of range: %s", n.Value)}
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, &ParseError{Line: n.Line, Message: err.Error()}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ParseError{Line: n.Line, Message: fmt.Sprintf("non-finite number %s", n.Value)}
		}
		return Float(f), nil
	case "!!str", "!!timestamp":
		return String(n.Value), nil
	default:
		return nil, &ParseError{Line: n.Line, Message: fmt.Sprintf("unsupported tag %s", n.Tag)}
	}
}
