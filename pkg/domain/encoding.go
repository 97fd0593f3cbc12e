package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the model as a JSON object in insertion order.
// Error values are rendered as their message.
func (m *Model) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for name, v := range m.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(renderable(v))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal model value %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the model contents with a JSON object, keeping key order.
// Numbers decode as json.Number. The trace is cleared afterwards.
func (m *Model) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("model must be a JSON object, got %v", tok)
	}

	fresh := NewModel()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected model key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to decode model value %q: %w", name, err)
		}
		fresh.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	fresh.ClearTrace()
	*m = *fresh
	return nil
}

// MarshalYAML encodes the model as a YAML mapping in insertion order.
func (m *Model) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for name, v := range m.All() {
		var val yaml.Node
		if err := val.Encode(renderable(v)); err != nil {
			return nil, fmt.Errorf("failed to encode model value %q: %w", name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&val,
		)
	}
	return node, nil
}

// MarshalJSON encodes the tuple as a JSON array.
func (t Tuple) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.values)
}

// MarshalYAML encodes the tuple as a YAML sequence.
func (t Tuple) MarshalYAML() (any, error) {
	return t.values, nil
}

// MarshalJSON encodes the set as a JSON array in first-seen order.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.items)
}

// MarshalYAML encodes the set as a YAML sequence in first-seen order.
func (s *Set) MarshalYAML() (any, error) {
	return s.items, nil
}

func renderable(v any) any {
	if err, ok := v.(error); ok {
		if _, isMarshaler := v.(json.Marshaler); !isMarshaler {
			return err.Error()
		}
	}
	return v
}
