package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// decodeObject walks a JSON object in document order. null and [] are both
// accepted as an empty object; some packers write empty maps as arrays.
func decodeObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("expected object, got %v", tok)
	}
	switch delim {
	case '[':
		if dec.More() {
			return fmt.Errorf("expected object, got non-empty array")
		}
		_, err := dec.Token()
		return err
	case '{':
	default:
		return fmt.Errorf("unexpected delimiter %v", delim)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	// closing brace
	_, err = dec.Token()
	return err
}

// decodeMapping walks a YAML mapping node in document order, converting each
// value to JSON so it can be served as-is.
func decodeMapping(node *yaml.Node, fn func(key string, value json.RawMessage) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var v any
		if err := valueNode.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", valueNode.Line, err)
		}
		value, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: value for %q: %w", valueNode.Line, keyNode.Value, err)
		}
		if err := fn(keyNode.Value, value); err != nil {
			return err
		}
	}
	return nil
}

// encodeObject writes key/value pairs as a JSON object in the given order.
func encodeObject(n int, pair func(i int) (string, json.RawMessage)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		key, value := pair(i)
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		if err := json.Compact(&buf, value); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// collector appends to t. A repeated name keeps its first position
// and takes the last value.
func (t *MetadataTable) collector() func(string, json.RawMessage) error {
	seen := make(map[string]int)
	return func(name string, value json.RawMessage) error {
		if i, ok := seen[name]; ok {
			(*t)[i].Value = value
			return nil
		}
		seen[name] = len(*t)
		*t = append(*t, MetadataEntry{Name: name, Value: value})
		return nil
	}
}

// UnmarshalJSON keeps manifest order.
func (t *MetadataTable) UnmarshalJSON(data []byte) error {
	*t = MetadataTable{}
	return decodeObject(data, t.collector())
}

// UnmarshalYAML keeps manifest order.
func (t *MetadataTable) UnmarshalYAML(node *yaml.Node) error {
	*t = MetadataTable{}
	return decodeMapping(node, t.collector())
}

func (t MetadataTable) MarshalJSON() ([]byte, error) {
	return encodeObject(len(t), func(i int) (string, json.RawMessage) {
		return t[i].Name, t[i].Value
	})
}

// Names returns the image names in table order.
func (t MetadataTable) Names() []string {
	names := make([]string, len(t))
	for i, e := range t {
		names[i] = e.Name
	}
	return names
}

func (t *NamedUVTable) collector() func(string, json.RawMessage) error {
	seen := make(map[string]int)
	return func(name string, rect json.RawMessage) error {
		if i, ok := seen[name]; ok {
			(*t)[i].Rect = rect
			return nil
		}
		seen[name] = len(*t)
		*t = append(*t, UVEntry{Name: name, Rect: rect})
		return nil
	}
}

func (t *NamedUVTable) UnmarshalJSON(data []byte) error {
	*t = NamedUVTable{}
	return decodeObject(data, t.collector())
}

func (t *NamedUVTable) UnmarshalYAML(node *yaml.Node) error {
	*t = NamedUVTable{}
	return decodeMapping(node, t.collector())
}

func (t NamedUVTable) MarshalJSON() ([]byte, error) {
	return encodeObject(len(t), func(i int) (string, json.RawMessage) {
		return t[i].Name, t[i].Rect
	})
}

// MarshalJSON always writes an object so clients can index uv by id.
func (t IDUVTable) MarshalJSON() ([]byte, error) {
	return encodeObject(len(t), func(i int) (string, json.RawMessage) {
		return strconv.Itoa(t[i].ID), t[i].Rect
	})
}

func (t *IDUVTable) UnmarshalJSON(data []byte) error {
	*t = IDUVTable{}
	return decodeObject(data, func(key string, rect json.RawMessage) error {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("uv key %q is not an id", key)
		}
		*t = append(*t, IDUVEntry{ID: id, Rect: rect})
		return nil
	})
}

// Lookup returns the rectangle stored under id.
func (t IDUVTable) Lookup(id int) (json.RawMessage, bool) {
	for _, e := range t {
		if e.ID == id {
			return e.Rect, true
		}
	}
	return nil, false
}
