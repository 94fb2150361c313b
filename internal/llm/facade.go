package llm

import (
	anthropicprovider "agentdesk/internal/llm/providers/anthropic"
	mockprovider "agentdesk/internal/llm/providers/mock"

	"agentdesk/internal/llm/core"
)

type (
	// Provider is the public completion contract.
	Provider = core.Provider

	ToolSpec    = core.ToolSpec
	RetryPolicy = core.RetryPolicy
	Request     = core.Request
	Response    = core.Response

	// Conversation-model aliases.
	Role         = core.Role
	StopReason   = core.StopReason
	ContentType  = core.ContentType
	ContentBlock = core.ContentBlock
	ToolCall     = core.ToolCall
	ToolResult   = core.ToolResult
	Message      = core.Message
	Usage        = core.Usage

	// Anthropic* aliases expose provider-specific configuration and implementation.
	AnthropicConfig   = anthropicprovider.Config
	AnthropicProvider = anthropicprovider.Provider

	// MockProvider replays scripted replies for tests.
	MockProvider = mockprovider.Provider
	MockReply    = mockprovider.Reply
)

const (
	RoleUser      = core.RoleUser
	RoleAssistant = core.RoleAssistant
	RoleTool      = core.RoleTool

	StopReasonStop    = core.StopReasonStop
	StopReasonLength  = core.StopReasonLength
	StopReasonToolUse = core.StopReasonToolUse
	StopReasonError   = core.StopReasonError

	ContentTypeText = core.ContentTypeText
)

var (
	// ErrInvalidRequest indicates malformed canonical request payloads.
	ErrInvalidRequest = core.ErrInvalidRequest
	// ErrMissingAPIKey indicates missing Anthropic API credentials.
	ErrMissingAPIKey = core.ErrMissingAPIKey
)

// ReflectToolSpec reflects a tool input struct into a ToolSpec.
func ReflectToolSpec(name, description string, input any) (ToolSpec, error) {
	return core.ReflectToolSpec(name, description, input)
}

// ToolArgsMap decodes tool call arguments, yielding an empty map when they
// are not a JSON object.
func ToolArgsMap(raw []byte) map[string]any {
	return core.ToolArgsMapOrEmpty(raw)
}

// UserText builds a single-block user message.
func UserText(text string) Message {
	return core.UserText(text)
}

// ToolResultMessage wraps one tool result.
func ToolResultMessage(result ToolResult) Message {
	return core.ToolResultMessage(result)
}

// NewAnthropicProvider constructs an Anthropic provider with normalized defaults.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	return anthropicprovider.New(cfg)
}

// MockText scripts a plain assistant reply.
func MockText(text string) MockReply {
	return mockprovider.Text(text)
}

// MockToolUse scripts an assistant reply proposing one tool call.
func MockToolUse(text, id, name string, input any) MockReply {
	return mockprovider.ToolUse(text, id, name, input)
}
