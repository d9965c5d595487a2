package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const mergeTag = "!!merge"

// maxNodes bounds the size of the expanded tree. Aliases are copied out in
// full, so a small file can otherwise expand exponentially.
const maxNodes = 100_000

// Parse decodes a YAML document into a Map.
func Parse(data []byte) (*Map, error) {
	return ParseSource("", data)
}

// ParseSource is Parse with a source name attached to any FormatError.
//
// Empty documents yield an empty Map. The root must be a mapping. Mapping
// values written as "__reset__" or tagged !reset become Reset; inside lists
// the sentinel is an ordinary string.
func ParseSource(source string, data []byte) (*Map, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return NewMap(), nil
		}
		return nil, &FormatError{Source: source, Err: err}
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, &FormatError{Source: source, Err: err}
		}
		return nil, &FormatError{Source: source, Line: extra.Line, Err: errors.New("multiple YAML documents are not supported")}
	}

	p := parser{source: source}
	body := &root
	if body.Kind == yaml.DocumentNode {
		if len(body.Content) == 0 {
			return NewMap(), nil
		}
		body = body.Content[0]
	}
	body = resolveAlias(body)

	switch {
	case body.Kind == yaml.MappingNode:
		return p.mapping(body)
	case body.Kind == yaml.ScalarNode && body.ShortTag() == tagNull:
		return NewMap(), nil
	default:
		return nil, p.errorf(body, "document root must be a mapping, got %s", describe(body))
	}
}

type parser struct {
	source string
	nodes  int
}

func (p *parser) errorf(n *yaml.Node, format string, args ...any) error {
	return &FormatError{Source: p.source, Line: n.Line, Err: fmt.Errorf(format, args...)}
}

// value converts n; field is true when n is the value of a mapping entry.
func (p *parser) value(n *yaml.Node, field bool) (Value, error) {
	p.nodes++
	if p.nodes > maxNodes {
		return nil, p.errorf(n, "document contains excessive aliasing: more than %d values after expanding aliases", maxNodes)
	}
	if field && isReset(n) {
		return Reset{}, nil
	}
	n = resolveAlias(n)
	if field && isReset(n) {
		return Reset{}, nil
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return Scalar{Tag: n.ShortTag(), Text: n.Value}, nil
	case yaml.SequenceNode:
		out := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := p.value(item, false)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return p.mapping(n)
	default:
		return nil, p.errorf(n, "unsupported node %s", describe(n))
	}
}

func (p *parser) mapping(n *yaml.Node) (*Map, error) {
	if len(n.Content)%2 != 0 {
		return nil, p.errorf(n, "mapping has an odd number of nodes")
	}

	out := NewMap()
	var merges []*yaml.Node

	for i := 0; i < len(n.Content); i += 2 {
		keyNode := resolveAlias(n.Content[i])
		valNode := n.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode {
			return nil, p.errorf(keyNode, "mapping key must be a scalar, got %s", describe(keyNode))
		}
		if keyNode.ShortTag() == mergeTag {
			merges = append(merges, valNode)
			continue
		}

		key := keyNode.Value
		if _, dup := out.Get(key); dup {
			return nil, p.errorf(keyNode, "duplicate key %q", key)
		}

		v, err := p.value(valNode, true)
		if err != nil {
			return nil, err
		}
		out.Set(key, v)
	}

	for _, src := range merges {
		if err := p.applyMergeKey(out, src); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// applyMergeKey implements "<<": keys already present win, and earlier
// sources in a sequence win over later ones.
func (p *parser) applyMergeKey(dst *Map, src *yaml.Node) error {
	src = resolveAlias(src)

	var sources []*yaml.Node
	switch src.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{src}
	case yaml.SequenceNode:
		for _, item := range src.Content {
			sources = append(sources, resolveAlias(item))
		}
	default:
		return p.errorf(src, "merge key value must be a mapping or a sequence of mappings")
	}

	for _, s := range sources {
		if s.Kind != yaml.MappingNode {
			return p.errorf(s, "merge key value must be a mapping or a sequence of mappings")
		}
		m, err := p.mapping(s)
		if err != nil {
			return err
		}
		for _, k := range m.keys {
			if _, exists := dst.Get(k); !exists {
				dst.Set(k, m.values[k])
			}
		}
	}
	return nil
}

func isReset(n *yaml.Node) bool {
	if n.Tag == ResetTag {
		return true
	}
	return n.Kind == yaml.ScalarNode && n.Value == ResetSentinel
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "scalar " + n.ShortTag()
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown node"
	}
}
