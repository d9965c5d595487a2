package document

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindList
	KindMap
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Value is one node of a configuration tree. It is implemented only by
// Scalar, List, *Map and Reset.
type Value interface {
	Kind() Kind
	node() *yaml.Node
	clone() Value
}

// ResetSentinel is the plain-text marker that parses into Reset.
const ResetSentinel = "__reset__"

// ResetTag is the YAML tag that parses into Reset regardless of the tagged value.
const ResetTag = "!reset"

const (
	tagStr   = "!!str"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagBool  = "!!bool"
	tagNull  = "!!null"
)

// Scalar is a leaf value. Tag is the resolved YAML short tag ("!!str",
// "!!int", ...) and Text its literal representation.
type Scalar struct {
	Tag  string
	Text string
}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{Tag: tagStr, Text: s} }

// Int returns an integer scalar.
func Int(i int64) Scalar { return Scalar{Tag: tagInt, Text: strconv.FormatInt(i, 10)} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{Tag: tagBool, Text: strconv.FormatBool(b)} }

// Null returns the null scalar.
func Null() Scalar { return Scalar{Tag: tagNull, Text: "null"} }

// Float returns a floating point scalar.
func Float(f float64) Scalar {
	switch {
	case math.IsNaN(f):
		return Scalar{Tag: tagFloat, Text: ".nan"}
	case math.IsInf(f, 1):
		return Scalar{Tag: tagFloat, Text: ".inf"}
	case math.IsInf(f, -1):
		return Scalar{Tag: tagFloat, Text: "-.inf"}
	}
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(text, ".e") {
		text += ".0"
	}
	return Scalar{Tag: tagFloat, Text: text}
}

func (Scalar) Kind() Kind { return KindScalar }

// IsNull reports whether the scalar is YAML null.
func (s Scalar) IsNull() bool { return s.Tag == tagNull }

// Interface decodes the scalar into its natural Go value (string, int,
// float64, bool or nil).
func (s Scalar) Interface() any {
	var v any
	if err := s.node().Decode(&v); err != nil {
		return s.Text
	}
	return v
}

// zero returns the empty value of the same type, used when a scalar is reset.
func (s Scalar) zero() Scalar {
	switch s.Tag {
	case tagStr:
		return String("")
	case tagInt:
		return Int(0)
	case tagFloat:
		return Float(0)
	case tagBool:
		return Bool(false)
	default:
		return Null()
	}
}

func (s Scalar) node() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: s.Tag, Value: s.Text}
}

func (s Scalar) clone() Value { return s }

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }

func (l List) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(l) == 0 {
		n.Style = yaml.FlowStyle
	}
	for _, item := range l {
		n.Content = append(n.Content, item.node())
	}
	return n
}

func (l List) clone() Value {
	out := make(List, len(l))
	for i, item := range l {
		out[i] = item.clone()
	}
	return out
}

// Strings returns the list items as strings. Non-scalar items are skipped.
func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		if s, ok := item.(Scalar); ok {
			out = append(out, s.Text)
		}
	}
	return out
}

// Reset marks a field to be cleared by Merge instead of replaced.
type Reset struct{}

func (Reset) Kind() Kind { return KindReset }

func (Reset) node() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: ResetTag, Value: ""}
}

func (r Reset) clone() Value { return r }
