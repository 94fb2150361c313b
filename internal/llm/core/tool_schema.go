package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

var inputReflector = jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: false,
}

// ObjectSchema is the input schema a tool advertises to the model. Tools
// only ever take a single JSON object.
type ObjectSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// ReflectToolSpec builds a ToolSpec whose schema is reflected from the
// fields of input, which must be a struct or a pointer to one.
func ReflectToolSpec(name, description string, input any) (ToolSpec, error) {
	t := reflect.TypeOf(input)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ToolSpec{}, fmt.Errorf("%w: tool %q input must be a struct, got %T", ErrInvalidRequest, name, input)
	}

	reflected, err := json.Marshal(inputReflector.ReflectFromType(t))
	if err != nil {
		return ToolSpec{}, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	schema, err := ParseObjectSchema(reflected)
	if err != nil {
		return ToolSpec{}, fmt.Errorf("%s schema: %w", name, err)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return ToolSpec{}, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	return ToolSpec{Name: name, Description: description, Schema: raw}, nil
}

// ParseObjectSchema decodes a tool schema, dropping everything but the
// object keywords providers accept. An empty schema is an object with no
// properties.
func ParseObjectSchema(raw json.RawMessage) (ObjectSchema, error) {
	schema := ObjectSchema{Type: "object"}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &schema); err != nil {
			return ObjectSchema{}, fmt.Errorf("%w: invalid tool schema json", ErrInvalidRequest)
		}
	}
	switch schema.Type {
	case "":
		schema.Type = "object"
	case "object":
	default:
		return ObjectSchema{}, fmt.Errorf("%w: tool schema type %q, want object", ErrInvalidRequest, schema.Type)
	}
	if schema.Properties == nil {
		schema.Properties = map[string]any{}
	}
	return schema, nil
}
