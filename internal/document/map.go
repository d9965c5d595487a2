package document

import (
	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered string-keyed mapping. The zero value is not
// usable; construct with NewMap.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

func (*Map) Kind() Kind { return KindMap }

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores v under key. Existing keys keep their position.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Lookup walks nested maps along path.
func (m *Map) Lookup(path ...string) (Value, bool) {
	var cur Value = m
	for _, key := range path {
		mm, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		if cur, ok = mm.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath stores v at the nested path, creating intermediate maps and
// replacing non-map values found on the way.
func (m *Map) SetPath(v Value, path ...string) {
	if len(path) == 0 {
		return
	}
	cur := m
	for _, key := range path[:len(path)-1] {
		next, ok := cur.values[key].(*Map)
		if !ok {
			next = NewMap()
			cur.Set(key, next)
		}
		cur = next
	}
	cur.Set(path[len(path)-1], v)
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k].clone())
	}
	return out
}

func (m *Map) clone() Value { return m.Clone() }

// Node renders the map as a YAML mapping node.
func (m *Map) Node() *yaml.Node { return m.node() }

func (m *Map) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m.Len() == 0 {
		n.Style = yaml.FlowStyle
		return n
	}
	for _, k := range m.keys {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: k},
			m.values[k].node(),
		)
	}
	return n
}

// Interface converts the tree into plain Go values (map[string]any, []any
// and scalars) suitable for JSON encoding.
func (m *Map) Interface() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = toInterface(m.values[k])
	}
	return out
}

func toInterface(v Value) any {
	switch t := v.(type) {
	case Scalar:
		return t.Interface()
	case List:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = toInterface(item)
		}
		return items
	case *Map:
		return t.Interface()
	default:
		return nil
	}
}
