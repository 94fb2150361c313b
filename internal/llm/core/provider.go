package core

import (
	"context"
	"encoding/json"
	"time"
)

// Provider completes one model request.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ToolSpec describes a tool exposed to the model.
// Schema can be generated from a Go struct via ReflectToolSpec.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// RetryPolicy configures retry/backoff behavior for retryable failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Request is the provider-agnostic completion request.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolSpec
	MaxTokens int
	Retry     RetryPolicy
}

// Response is one complete assistant turn.
type Response struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}
