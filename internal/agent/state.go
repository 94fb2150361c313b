package agent

import "agentdesk/internal/llm"

// State is the resume status of a thread.
type State string

const (
	// StateIdle means the thread accepts a new user message.
	StateIdle State = "idle"
	// StatePending means the last assistant message proposed tool calls that
	// await approve or reject.
	StatePending State = "pending"
)

// threadState derives the state of a thread from its transcript tail.
func threadState(msgs []llm.Message) (State, []llm.ToolCall) {
	if len(msgs) == 0 {
		return StateIdle, nil
	}
	last := msgs[len(msgs)-1]
	if last.Role == llm.RoleAssistant && len(last.ToolCalls) > 0 {
		return StatePending, last.ToolCalls
	}
	return StateIdle, nil
}
