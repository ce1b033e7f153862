package template

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a template property value. Short-form intrinsics (!Ref, !Sub,
// !GetAtt, ...) decode into their long map form so callers see one shape.
type Value struct {
	raw any
}

// UnmarshalYAML normalizes intrinsic tags before decoding.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeNode(node)
	if err != nil {
		return err
	}
	v.raw = decoded
	return nil
}

func decodeNode(node *yaml.Node) (any, error) {
	if fn, ok := intrinsicName(node.Tag); ok {
		inner := *node
		inner.Tag = ""
		var arg any
		if err := decodeUntagged(&inner, &arg); err != nil {
			return nil, err
		}
		// !GetAtt takes dotted shorthand; the long form wants a list.
		if fn == "Fn::GetAtt" {
			if s, ok := arg.(string); ok {
				parts := strings.SplitN(s, ".", 2)
				if len(parts) == 2 {
					arg = []any{parts[0], parts[1]}
				}
			}
		}
		return map[string]any{fn: arg}, nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		m := map[string]Value{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, err
			}
			var val Value
			if err := val.UnmarshalYAML(node.Content[i+1]); err != nil {
				return nil, err
			}
			m[key] = val
		}
		return m, nil
	case yaml.SequenceNode:
		var seq []Value
		for _, item := range node.Content {
			var val Value
			if err := val.UnmarshalYAML(item); err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	default:
		var out any
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func decodeUntagged(node *yaml.Node, out *any) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*out = s
		return nil
	default:
		return node.Decode(out)
	}
}

// intrinsicName maps a short-form tag to its Fn:: name.
func intrinsicName(tag string) (string, bool) {
	if !strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "!!") {
		return "", false
	}
	name := strings.TrimPrefix(tag, "!")
	if name == "Ref" {
		return "Ref", true
	}
	if name == "Condition" {
		return "Condition", true
	}
	return "Fn::" + name, true
}

// AsString returns the scalar string form of the value.
func (v Value) AsString() (string, bool) {
	switch s := v.raw.(type) {
	case string:
		return s, true
	case int:
		return fmt.Sprintf("%d", s), true
	case bool:
		return fmt.Sprintf("%t", s), true
	case float64:
		return fmt.Sprintf("%g", s), true
	}
	return "", false
}

// AsInt returns the integer form of the value.
func (v Value) AsInt() (int, bool) {
	switch n := v.raw.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// AsBool returns the boolean form of the value.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// AsMap returns the mapping form of the value.
func (v Value) AsMap() (map[string]Value, bool) {
	switch m := v.raw.(type) {
	case map[string]Value:
		return m, true
	case map[string]any:
		// Intrinsic map form; expose it as opaque values.
		out := map[string]Value{}
		for k, val := range m {
			out[k] = Value{raw: val}
		}
		return out, true
	}
	return nil, false
}

// AsList returns the sequence form of the value.
func (v Value) AsList() ([]Value, bool) {
	l, ok := v.raw.([]Value)
	return l, ok
}

// Ref returns the referenced logical id when the value is {Ref: X},
// whether it arrived as the short tag or the long map form.
func (v Value) Ref() (string, bool) {
	switch m := v.raw.(type) {
	case map[string]any:
		s, ok := m["Ref"].(string)
		return s, ok
	case map[string]Value:
		if ref, ok := m["Ref"]; ok {
			return ref.AsString()
		}
	}
	return "", false
}

// Raw exposes the normalized value for callers that need full fidelity.
func (v Value) Raw() any { return v.raw }
