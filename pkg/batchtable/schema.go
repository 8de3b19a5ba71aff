package batchtable

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Faultbox/tilebatch/pkg/property"
)

// Keys in batch table JSON that are not properties.
var reservedKeys = map[string]bool{
	"extensions": true,
	"extras":     true,
}

type entryKind uint8

const (
	entryInline entryKind = iota
	entryBinary
)

// entry is one named property: either an inline per-feature value array or a
// binary descriptor.
type entry struct {
	name   string
	kind   entryKind
	values []any
	desc   property.Descriptor
}

// Schema is the ordered set of properties declared by a batch table.
type Schema struct {
	entries []*entry
	index   map[string]int
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{index: make(map[string]int)}
}

// AddInline declares a property whose per-feature values are stored inline.
// Values may be any JSON-like value, including maps and slices.
func (s *Schema) AddInline(name string, values []any) *Schema {
	s.put(&entry{name: name, kind: entryInline, values: values})
	return s
}

// AddBinary declares a property stored in the binary body. The descriptor is
// validated when the batch table is created.
func (s *Schema) AddBinary(d property.Descriptor) *Schema {
	s.put(&entry{name: d.Name, kind: entryBinary, desc: d})
	return s
}

// put replaces an existing entry in place so the first declaration keeps its
// position.
func (s *Schema) put(e *entry) {
	if i, ok := s.index[e.name]; ok {
		s.entries[i] = e
		return
	}
	s.index[e.name] = len(s.entries)
	s.entries = append(s.entries, e)
}

// clone copies the entries and every inline value slice. Nested maps and
// slices inside values are shared; writes replace whole values.
func (s *Schema) clone() *Schema {
	c := &Schema{
		entries: make([]*entry, len(s.entries)),
		index:   make(map[string]int, len(s.entries)),
	}
	for i, e := range s.entries {
		cp := *e
		if e.values != nil {
			cp.values = append([]any(nil), e.values...)
		}
		c.entries[i] = &cp
		c.index[cp.name] = i
	}
	return c
}

func (s *Schema) lookup(name string) *entry {
	if s == nil {
		return nil
	}
	if i, ok := s.index[name]; ok {
		return s.entries[i]
	}
	return nil
}

// Names returns property names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return []string{}
	}
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of declared properties.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// ParseSchema parses batch table JSON, keeping property declaration order.
// Objects with a byteOffset are binary references; arrays are inline values.
func ParseSchema(data []byte) (*Schema, error) {
	s := NewSchema()
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing batch table JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing batch table JSON: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing batch table JSON: %w", err)
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing batch table property %q: %w", name, err)
		}
		if reservedKeys[name] {
			continue
		}
		if err := s.addRaw(name, raw); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing batch table JSON: %w", err)
	}
	return s, nil
}

// binaryJSON mirrors a binary property reference. Pointers distinguish
// absent fields from zero values.
type binaryJSON struct {
	ByteOffset    *int            `json:"byteOffset"`
	ComponentType json.RawMessage `json:"componentType"`
	Type          *string         `json:"type"`
}

func (s *Schema) addRaw(name string, raw json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("%w: property with an empty name", ErrInvalidDescriptor)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var b binaryJSON
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidDescriptor, name, err)
		}
		if b.ByteOffset == nil {
			return fmt.Errorf("%w: %q is an object without byteOffset", ErrInvalidDescriptor, name)
		}
		d := property.Descriptor{Name: name, ByteOffset: *b.ByteOffset}
		if len(b.ComponentType) > 0 {
			ct, err := parseComponentType(b.ComponentType)
			if err != nil {
				return fmt.Errorf("%q: %w", name, err)
			}
			d.ComponentType = ct
		}
		if b.Type != nil {
			shape, err := property.ParseShape(*b.Type)
			if err != nil {
				return fmt.Errorf("%q: %w", name, err)
			}
			d.Shape = shape
		}
		s.AddBinary(d)
		return nil
	}

	var values []any
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return fmt.Errorf("%w: %q must be an array or a binary reference", ErrInvalidDescriptor, name)
	}
	s.AddInline(name, values)
	return nil
}

// parseComponentType accepts either a name ("FLOAT") or a WebGL enum (5126).
func parseComponentType(raw json.RawMessage) (property.ComponentType, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return property.ParseComponentType(name)
	}
	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return property.ComponentTypeUnspecified, fmt.Errorf("%w: componentType %s", ErrInvalidDescriptor, raw)
	}
	return property.ComponentTypeFromGL(code)
}
