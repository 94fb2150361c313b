package core

import (
	"encoding/json"
	"errors"
	"testing"
)

type brokenMarshaler struct{}

func (brokenMarshaler) MarshalJSON() ([]byte, error) {
	return nil, errors.New("boom")
}

func TestEncodeToolArgs(t *testing.T) {
	t.Parallel()

	got, err := EncodeToolArgs(nil)
	if err != nil {
		t.Fatalf("EncodeToolArgs(nil) error = %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("EncodeToolArgs(nil) = %q, want {}", got)
	}

	got, err = EncodeToolArgs(slipLookupInput{SlipID: "12345"})
	if err != nil {
		t.Fatalf("EncodeToolArgs(slip) error = %v", err)
	}
	if string(got) != `{"slip_id":"12345"}` {
		t.Fatalf("EncodeToolArgs(slip) = %q", got)
	}

	got, err = EncodeToolArgs(reportInput{Destination: "Sapporo"})
	if err != nil {
		t.Fatalf("EncodeToolArgs(report) error = %v", err)
	}
	if string(got) != `{"destination":"Sapporo"}` {
		t.Fatalf("EncodeToolArgs(report) = %q", got)
	}

	if _, err := EncodeToolArgs(brokenMarshaler{}); err == nil {
		t.Fatalf("EncodeToolArgs(broken) error = nil")
	}
}

func TestToolArgsFromWire(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "{"} {
		if got := ToolArgsFromWire([]byte(raw)); string(got) != "{}" {
			t.Fatalf("ToolArgsFromWire(%q) = %q, want {}", raw, got)
		}
	}

	buf := []byte(` {"slip_id":"12345"} `)
	got := ToolArgsFromWire(buf)
	if string(got) != `{"slip_id":"12345"}` {
		t.Fatalf("ToolArgsFromWire() = %q", got)
	}
	buf[2] = 'X'
	if string(got) != `{"slip_id":"12345"}` {
		t.Fatalf("ToolArgsFromWire() shares the response buffer: %q", got)
	}
}

func TestToolArgsMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     json.RawMessage
		want    map[string]any
		wantErr bool
	}{
		{name: "blank", raw: json.RawMessage("  "), want: map[string]any{}},
		{
			name: "report",
			raw:  json.RawMessage(`{"destination":"Sapporo","note":"delay"}`),
			want: map[string]any{"destination": "Sapporo", "note": "delay"},
		},
		{name: "malformed", raw: json.RawMessage("{"), wantErr: true},
		{name: "array", raw: json.RawMessage(`["12345"]`), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToolArgsMap(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("ToolArgsMap() error = %v, want ErrInvalidRequest", err)
				}
				if empty := ToolArgsMapOrEmpty(tc.raw); len(empty) != 0 {
					t.Fatalf("ToolArgsMapOrEmpty() = %#v, want empty", empty)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToolArgsMap() error = %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ToolArgsMap() = %#v, want %#v", got, tc.want)
			}
			for key, want := range tc.want {
				if got[key] != want {
					t.Fatalf("ToolArgsMap()[%q] = %v, want %v", key, got[key], want)
				}
			}
		})
	}
}
