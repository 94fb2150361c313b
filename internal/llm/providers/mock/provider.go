package mockprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agentdesk/internal/llm/core"
)

// ErrScriptExhausted is returned once every scripted reply has been consumed.
var ErrScriptExhausted = errors.New("mock provider script exhausted")

// Provider replays a predefined list of replies for deterministic tests.
// Every request it receives is recorded.
type Provider struct {
	Replies []Reply

	mu       sync.Mutex
	next     int
	requests []core.Request
}

// Reply is one scripted completion or failure.
type Reply struct {
	Response *core.Response
	Err      error
}

// Text scripts a plain assistant reply.
func Text(text string) Reply {
	return Reply{Response: &core.Response{
		Message: core.Message{
			Role:    core.RoleAssistant,
			Content: []core.ContentBlock{{Type: core.ContentTypeText, Text: text}},
		},
		StopReason: core.StopReasonStop,
	}}
}

// ToolUse scripts an assistant reply that proposes one tool call.
func ToolUse(text, id, name string, input any) Reply {
	args, err := core.EncodeToolArgs(input)
	if err != nil {
		return Reply{Err: fmt.Errorf("script tool input: %w", err)}
	}
	msg := core.Message{
		Role:      core.RoleAssistant,
		ToolCalls: []core.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
	if text != "" {
		msg.Content = []core.ContentBlock{{Type: core.ContentTypeText, Text: text}}
	}
	return Reply{Response: &core.Response{Message: msg, StopReason: core.StopReasonToolUse}}
}

// Complete returns the next scripted reply.
func (m *Provider) Complete(ctx context.Context, req *core.Request) (*core.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if req != nil {
		snapshot := *req
		snapshot.Messages = append([]core.Message(nil), req.Messages...)
		m.requests = append(m.requests, snapshot)
	}
	if m.next >= len(m.Replies) {
		return nil, ErrScriptExhausted
	}
	reply := m.Replies[m.next]
	m.next++
	if reply.Err != nil {
		return nil, reply.Err
	}
	resp := *reply.Response
	return &resp, nil
}

// Requests returns copies of the requests received so far.
func (m *Provider) Requests() []core.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Request(nil), m.requests...)
}
