package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"agentdesk/internal/llm"
	"agentdesk/internal/tools"
	"agentdesk/internal/turn"
)

const (
	maxToolResultContentLen = 10_000
	toolResultHeadLen       = 4_000
	toolResultTailLen       = 4_000
	toolResultTruncateMark  = "\n...[truncated]...\n"
)

// run steps the model over history, persisting every produced message.
func (r *Runner) run(ctx context.Context, threadID string, history []llm.Message) (Result, error) {
	var (
		usage   llm.Usage
		records []turn.Record
	)

	for step := 0; step < r.maxSteps; step++ {
		resp, err := r.provider.Complete(ctx, &llm.Request{
			Model:     r.model,
			System:    r.system,
			Messages:  history,
			Tools:     r.registry.Specs(),
			MaxTokens: r.maxTokens,
			Retry:     r.retry,
		})
		if err != nil {
			return Result{}, fmt.Errorf("complete step %d: %w", step+1, err)
		}
		usage.Add(resp.Usage)

		assistant := resp.Message
		assistant.Role = llm.RoleAssistant
		if err := r.store.Append(ctx, threadID, assistant); err != nil {
			return Result{}, fmt.Errorf("persist assistant message: %w", err)
		}
		history = append(history, assistant)

		r.logger.Debug("agent step",
			zap.String("thread", threadID),
			zap.Int("step", step+1),
			zap.String("stop_reason", string(resp.StopReason)),
			zap.Int("tool_calls", len(assistant.ToolCalls)),
		)

		if len(assistant.ToolCalls) == 0 || !r.autoApproved(assistant.ToolCalls) {
			result := buildResult(history)
			result.Records = records
			result.Usage = usage
			return result, nil
		}

		results, created, err := r.executeToolCalls(ctx, assistant.ToolCalls)
		if err != nil {
			return Result{}, err
		}
		if err := r.store.Append(ctx, threadID, results...); err != nil {
			return Result{}, fmt.Errorf("persist tool results: %w", err)
		}
		history = append(history, results...)
		records = append(records, created...)
	}

	return Result{}, ErrMaxStepsExceeded
}

func (r *Runner) autoApproved(calls []llm.ToolCall) bool {
	for _, call := range calls {
		if !r.autoApprove[call.Name] {
			return false
		}
	}
	return true
}

// executeToolCalls runs calls in order and collects records reported by the
// tools. Tool failures become error results so the model can react.
func (r *Runner) executeToolCalls(ctx context.Context, calls []llm.ToolCall) ([]llm.Message, []turn.Record, error) {
	msgs := make([]llm.Message, 0, len(calls))
	var records []turn.Record
	for _, call := range calls {
		msg, display, err := r.executeToolCall(ctx, call)
		if err != nil {
			return nil, nil, err
		}
		msgs = append(msgs, msg)
		if display.Type == tools.DisplayRecordCreated {
			var record turn.Record
			if err := json.Unmarshal(display.Payload, &record); err != nil {
				r.logger.Warn("decode created record", zap.String("tool", call.Name), zap.Error(err))
				continue
			}
			records = append(records, record)
		}
	}
	return msgs, records, nil
}

func (r *Runner) executeToolCall(ctx context.Context, call llm.ToolCall) (llm.Message, tools.DisplayData, error) {
	result, err := r.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return llm.Message{}, tools.DisplayData{}, err
	}

	content := result.Content
	if err != nil {
		r.logger.Warn("tool failed", zap.String("tool", call.Name), zap.Error(err))
		if content == "" {
			content = fmt.Sprintf("error: %v", err)
		} else {
			content = fmt.Sprintf("%s\n\nerror: %v", content, err)
		}
	}
	if content == "" {
		content = "ok"
	}

	msg := llm.ToolResultMessage(llm.ToolResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    truncateToolResultContent(content),
		IsError:    err != nil,
	})
	if err != nil {
		return msg, tools.DisplayData{}, nil
	}
	return msg, result.Display, nil
}

// buildResult summarizes the thread tail the way the turn protocol reports it.
func buildResult(history []llm.Message) Result {
	state, pending := threadState(history)

	var result Result
	if len(history) > 0 {
		result.Content = messageText(history[len(history)-1])
	}
	if result.Content == "" {
		result.Content = turn.ConfirmPlaceholder
	}
	if state == StatePending {
		result.Pending = true
		result.ToolCalls = make([]turn.ToolCall, 0, len(pending))
		for _, call := range pending {
			result.ToolCalls = append(result.ToolCalls, turn.ToolCall{
				Name: call.Name,
				Args: llm.ToolArgsMap(call.Arguments),
			})
		}
	}
	result.History = make([]string, 0, len(history))
	for _, msg := range history {
		result.History = append(result.History, messageText(msg))
	}
	return result
}

func messageText(msg llm.Message) string {
	if msg.ToolResult != nil {
		return msg.ToolResult.Content
	}
	return msg.Text()
}

func truncateToolResultContent(content string) string {
	if len(content) <= maxToolResultContentLen {
		return content
	}
	return content[:toolResultHeadLen] + toolResultTruncateMark + content[len(content)-toolResultTailLen:]
}
