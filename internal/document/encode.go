package document

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encode renders m as a YAML document with two-space indentation.
func Encode(m *Map) ([]byte, error) {
	if m == nil {
		m = NewMap()
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.Node()); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode unmarshals m into out using yaml.v3 struct tags. Fields of out that
// m does not mention keep their current values, so out can be pre-filled
// with defaults.
func (m *Map) Decode(out any) error {
	if m == nil {
		m = NewMap()
	}
	if err := m.Node().Decode(out); err != nil {
		return &FormatError{Err: err}
	}
	return nil
}

// FromValue converts an arbitrary value (typically a tagged struct) into a
// Map by round-tripping it through YAML.
func FromValue(v any) (*Map, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return Parse(data)
}
