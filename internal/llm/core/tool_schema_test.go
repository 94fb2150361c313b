package core

import (
	"encoding/json"
	"errors"
	"testing"
)

type slipLookupInput struct {
	SlipID string `json:"slip_id" jsonschema:"required,description=Slip number to look up"`
}

type reportInput struct {
	Destination string `json:"destination" jsonschema:"required"`
	Note        string `json:"note,omitempty"`
}

func TestReflectToolSpec(t *testing.T) {
	t.Parallel()

	spec, err := ReflectToolSpec("create_investigation_report", "File a report", &reportInput{})
	if err != nil {
		t.Fatalf("ReflectToolSpec() error = %v", err)
	}
	if spec.Name != "create_investigation_report" || spec.Description != "File a report" {
		t.Fatalf("spec = %+v", spec)
	}
	schema, err := ParseObjectSchema(spec.Schema)
	if err != nil {
		t.Fatalf("ParseObjectSchema() error = %v", err)
	}
	if schema.Type != "object" {
		t.Fatalf("schema.Type = %q, want object", schema.Type)
	}
	for _, field := range []string{"destination", "note"} {
		if _, ok := schema.Properties[field]; !ok {
			t.Fatalf("schema properties = %#v, want %s", schema.Properties, field)
		}
	}
	if len(schema.Required) != 1 || schema.Required[0] != "destination" {
		t.Fatalf("schema required = %#v, want [destination]", schema.Required)
	}

	// Reflector metadata is stripped; providers only see object keywords.
	var top map[string]any
	if err := json.Unmarshal(spec.Schema, &top); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if _, ok := top["$schema"]; ok {
		t.Fatalf("schema keeps $schema: %s", spec.Schema)
	}
}

func TestReflectToolSpecRejectsNonStruct(t *testing.T) {
	t.Parallel()

	for _, input := range []any{nil, 42, "slip_id"} {
		if _, err := ReflectToolSpec("search_slip_info", "", input); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("ReflectToolSpec(%#v) error = %v, want ErrInvalidRequest", input, err)
		}
	}
}

func TestParseObjectSchema(t *testing.T) {
	t.Parallel()

	empty, err := ParseObjectSchema(json.RawMessage("  "))
	if err != nil {
		t.Fatalf("ParseObjectSchema(blank) error = %v", err)
	}
	if empty.Type != "object" || empty.Properties == nil || len(empty.Properties) != 0 {
		t.Fatalf("ParseObjectSchema(blank) = %#v", empty)
	}

	untyped, err := ParseObjectSchema(json.RawMessage(`{"properties":{"slip_id":{"type":"string"}}}`))
	if err != nil {
		t.Fatalf("ParseObjectSchema(untyped) error = %v", err)
	}
	if untyped.Type != "object" {
		t.Fatalf("untyped.Type = %q, want object", untyped.Type)
	}

	for _, raw := range []string{`{`, `{"type":"array"}`} {
		if _, err := ParseObjectSchema(json.RawMessage(raw)); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("ParseObjectSchema(%s) error = %v, want ErrInvalidRequest", raw, err)
		}
	}
}
