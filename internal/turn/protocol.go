package turn

import (
	"errors"
	"fmt"
	"strings"
)

// ConfirmPlaceholder is the content a backend sends when a turn stopped on a
// pending action and the model produced no prose of its own.
const ConfirmPlaceholder = "please confirm this action"

var (
	// ErrInvalidRequest indicates a turn request that violates the protocol.
	ErrInvalidRequest = errors.New("invalid turn request")
)

// Action is the decision carried by a resume turn.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Valid reports whether a is one of the known decisions.
func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Request is one turn sent to the backend. Exactly one of Message or Action
// is set; the other is encoded as JSON null.
type Request struct {
	SessionToken string  `json:"session_token"`
	Message      *string `json:"message"`
	Action       *Action `json:"action"`
}

// TextRequest builds a turn carrying new user text.
func TextRequest(token, text string) Request {
	return Request{
		SessionToken: token,
		Message:      &text,
	}
}

// DecisionRequest builds a turn carrying a decision and no text.
func DecisionRequest(token string, action Action) Request {
	return Request{
		SessionToken: token,
		Action:       &action,
	}
}

// Validate checks the exactly-one-of rule and the session token.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SessionToken) == "" {
		return fmt.Errorf("%w: session_token is required", ErrInvalidRequest)
	}
	switch {
	case r.Message != nil && r.Action != nil:
		return fmt.Errorf("%w: message and action are mutually exclusive", ErrInvalidRequest)
	case r.Message == nil && r.Action == nil:
		return fmt.Errorf("%w: one of message or action is required", ErrInvalidRequest)
	case r.Message != nil && strings.TrimSpace(*r.Message) == "":
		return fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	case r.Action != nil && !r.Action.Valid():
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, *r.Action)
	}
	return nil
}

// ToolCall is one invocation proposed by the agent.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Record is a data row the backend reports as created during a turn.
type Record struct {
	ID          string `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Note        string `json:"note"`
}

// Response is the backend reply to one turn.
type Response struct {
	Content   *string    `json:"content"`
	IsPending bool       `json:"is_pending"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Records   []Record   `json:"records,omitempty"`
	History   []string   `json:"history,omitempty"`
}

// RecordList is the payload of the record listing endpoint.
type RecordList struct {
	Records []Record `json:"records"`
}

// PendingCall returns the first proposed invocation when the response stops
// on an unresolved action. Later proposals are not surfaced.
func (r Response) PendingCall() (ToolCall, bool) {
	if !r.IsPending || len(r.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return r.ToolCalls[0], true
}

// IsConfirmPlaceholder reports whether content is exactly the confirmation
// sentinel. Padded or embedded occurrences are ordinary text.
func IsConfirmPlaceholder(content string) bool {
	return content == ConfirmPlaceholder
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
