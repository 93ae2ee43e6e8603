package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads a YAML document into a Value. Mappings keep their key
// order, and the same classification rules as JSON apply.
func DecodeYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		return Null(), nil
	}
	v, err := fromNode(&doc)
	if err != nil {
		return Value{}, fmt.Errorf("decode yaml: %w", err)
	}
	return v, nil
}

func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return Null(), nil
		}
		return fromNode(n.Alias)
	case yaml.MappingNode:
		obj := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			obj.Set(key, v)
		}
		return Classify(obj), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := fromNode(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Collect(newList(items)), nil
	case yaml.ScalarNode:
		return scalarNode(n)
	}
	return Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func scalarNode(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(strings.ToLower(n.Value))
		if err != nil {
			return Value{}, fmt.Errorf("line %d: invalid bool %q", n.Line, n.Value)
		}
		return Bool(b), nil
	case "!!int", "!!float":
		if _, err := strconv.ParseFloat(n.Value, 64); err != nil {
			// Hex, octal and .inf stay textual.
			return String(n.Value), nil
		}
		return Number(json.Number(n.Value)), nil
	}
	return String(n.Value), nil
}
