package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingParam reports a tool call that left out a required argument.
var ErrMissingParam = errors.New("missing required parameter")

type searchSlipInput struct {
	SlipID string `json:"slip_id" jsonschema:"required,description=Slip number to look up"`
}

func (in *searchSlipInput) normalize() error {
	in.SlipID = strings.TrimSpace(in.SlipID)
	if in.SlipID == "" {
		return fmt.Errorf("%w: slip_id", ErrMissingParam)
	}
	return nil
}

type createReportInput struct {
	Destination string `json:"destination" jsonschema:"required,description=Destination recorded on the report"`
	Note        string `json:"note,omitempty" jsonschema:"description=Free-form note attached to the report"`
}

func (in *createReportInput) normalize() error {
	in.Destination = strings.TrimSpace(in.Destination)
	in.Note = strings.TrimSpace(in.Note)
	if in.Destination == "" {
		return fmt.Errorf("%w: destination", ErrMissingParam)
	}
	return nil
}

type slipParams interface {
	normalize() error
}

// decodeParams decodes the model's arguments for tool into target and checks
// its required fields. Absent arguments decode as an empty object.
func decodeParams(tool string, raw json.RawMessage, target slipParams) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return fmt.Errorf("decode %s params: %w", tool, err)
	}
	if err := target.normalize(); err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}
