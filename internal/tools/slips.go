package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agentdesk/internal/ledger"
	"agentdesk/internal/llm"
)

const (
	searchSlipToolName   = "search_slip_info"
	createReportToolName = "create_investigation_report"

	// ReportOrigin and ReportStatus are stamped on every report slip.
	ReportOrigin = "Tokyo, Chiyoda"
	ReportStatus = "test slip"
)

// SlipStore is the persistence the slip tools need.
type SlipStore interface {
	Find(ctx context.Context, id string) (ledger.Slip, error)
	Create(ctx context.Context, in ledger.NewSlip) (ledger.Slip, error)
}

// SearchSlipTool looks up delivery information for a slip.
type SearchSlipTool struct {
	store  SlipStore
	schema json.RawMessage
}

// NewSearchSlipTool constructs the slip lookup tool.
func NewSearchSlipTool(store SlipStore) (SearchSlipTool, error) {
	spec, err := llm.ReflectToolSpec(searchSlipToolName, "", searchSlipInput{})
	if err != nil {
		return SearchSlipTool{}, fmt.Errorf("build %s schema: %w", searchSlipToolName, err)
	}
	return SearchSlipTool{store: store, schema: spec.Schema}, nil
}

func (SearchSlipTool) Name() string { return searchSlipToolName }

func (SearchSlipTool) Description() string {
	return "Looks up the current delivery information of a shipping slip by its slip number."
}

func (t SearchSlipTool) Schema() json.RawMessage { return t.schema }

func (t SearchSlipTool) Execute(ctx context.Context, params json.RawMessage) (Result, error) {
	var input searchSlipInput
	if err := decodeParams(searchSlipToolName, params, &input); err != nil {
		return Result{}, err
	}

	slip, err := t.store.Find(ctx, input.SlipID)
	if errors.Is(err, ledger.ErrNotFound) {
		return Result{Content: fmt.Sprintf("No slip found for %s.", input.SlipID)}, nil
	}
	if err != nil {
		return Result{}, err
	}

	raw, err := json.Marshal(slip)
	if err != nil {
		return Result{}, fmt.Errorf("encode slip: %w", err)
	}
	return Result{Content: string(raw)}, nil
}

// CreateReportTool records a new investigation report as a test slip.
type CreateReportTool struct {
	store  SlipStore
	schema json.RawMessage
}

// NewCreateReportTool constructs the report creation tool.
func NewCreateReportTool(store SlipStore) (CreateReportTool, error) {
	spec, err := llm.ReflectToolSpec(createReportToolName, "", createReportInput{})
	if err != nil {
		return CreateReportTool{}, fmt.Errorf("build %s schema: %w", createReportToolName, err)
	}
	return CreateReportTool{store: store, schema: spec.Schema}, nil
}

func (CreateReportTool) Name() string { return createReportToolName }

func (CreateReportTool) Description() string {
	return "Creates and records a new test slip or investigation report in the system."
}

func (t CreateReportTool) Schema() json.RawMessage { return t.schema }

func (t CreateReportTool) Execute(ctx context.Context, params json.RawMessage) (Result, error) {
	var input createReportInput
	if err := decodeParams(createReportToolName, params, &input); err != nil {
		return Result{}, err
	}

	slip, err := t.store.Create(ctx, ledger.NewSlip{
		Origin:      ReportOrigin,
		Destination: input.Destination,
		Status:      ReportStatus,
		Note:        input.Note,
	})
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(slip)
	if err != nil {
		return Result{}, fmt.Errorf("encode slip: %w", err)
	}
	content := fmt.Sprintf("Created report %s with destination %q", slip.ID, slip.Destination)
	if slip.Note != "" {
		content += fmt.Sprintf(" (note: %s)", slip.Note)
	}
	return Result{
		Content: content + ".",
		Display: DisplayData{Type: DisplayRecordCreated, Payload: payload},
	}, nil
}

// NewSlipTools builds the registry of slip tools backed by store.
func NewSlipTools(store SlipStore) (*Registry, error) {
	search, err := NewSearchSlipTool(store)
	if err != nil {
		return nil, err
	}
	report, err := NewCreateReportTool(store)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, tool := range []Tool{search, report} {
		if err := reg.Register(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
