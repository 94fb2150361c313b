package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var emptyArgs = json.RawMessage("{}")

// EncodeToolArgs marshals tool call input. A nil input encodes as an empty
// object so every call carries an argument payload.
func EncodeToolArgs(input any) (json.RawMessage, error) {
	if input == nil {
		return append(json.RawMessage(nil), emptyArgs...), nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode tool args: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: tool args are not valid json", ErrInvalidRequest)
	}
	return raw, nil
}

// ToolArgsFromWire copies provider-supplied arguments out of the response
// buffer. Blank or malformed input becomes an empty object.
func ToolArgsFromWire(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return append(json.RawMessage(nil), emptyArgs...)
	}
	return append(json.RawMessage(nil), trimmed...)
}

// ToolArgsMap decodes tool call arguments into a map. Blank arguments yield
// an empty map.
func ToolArgsMap(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("%w: tool args must be a json object: %v", ErrInvalidRequest, err)
	}
	return args, nil
}

// ToolArgsMapOrEmpty is ToolArgsMap for display paths, where undecodable
// arguments render as no arguments.
func ToolArgsMapOrEmpty(raw json.RawMessage) map[string]any {
	args, err := ToolArgsMap(raw)
	if err != nil {
		return map[string]any{}
	}
	return args
}
