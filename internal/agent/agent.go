package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"agentdesk/internal/checkpoint"
	"agentdesk/internal/llm"
	"agentdesk/internal/tools"
	"agentdesk/internal/turn"
)

const (
	defaultMaxSteps  = 8
	defaultMaxTokens = 1024

	// RejectedToolContent is the tool result recorded for a rejected call.
	RejectedToolContent = "rejected by the user"
	// RejectionMessage is the user turn appended after a rejection.
	RejectionMessage = "The user rejected the tool execution. Please suggest another approach."
)

var (
	// ErrProviderRequired indicates missing LLM provider dependency.
	ErrProviderRequired = errors.New("provider is required")
	// ErrStoreRequired indicates missing checkpoint store dependency.
	ErrStoreRequired = errors.New("checkpoint store is required")
	// ErrInvalidInput indicates an input without exactly one of message or action.
	ErrInvalidInput = errors.New("invalid agent input")
	// ErrThreadPending indicates a new message on a thread awaiting a decision.
	ErrThreadPending = errors.New("thread has a pending tool call")
	// ErrNothingPending indicates a decision on a thread with nothing to decide.
	ErrNothingPending = errors.New("thread has no pending tool call")
	// ErrMaxStepsExceeded indicates the loop reached the configured step limit.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
)

// ThreadStore persists thread transcripts.
type ThreadStore interface {
	Load(ctx context.Context, threadID string) ([]llm.Message, error)
	Append(ctx context.Context, threadID string, msgs ...llm.Message) error
}

// Config configures Runner creation.
type Config struct {
	Provider     llm.Provider
	ToolRegistry *tools.Registry
	Store        ThreadStore
	Model        string
	System       string
	MaxTokens    int
	MaxSteps     int
	Retry        llm.RetryPolicy
	// AutoApprove names tools executed without waiting for a decision.
	AutoApprove []string
	Logger      *zap.Logger
}

// Input is one invocation of a thread. Exactly one field is set.
type Input struct {
	Message *string
	Action  turn.Action
}

// Result summarizes the thread after an invocation.
type Result struct {
	Content   string
	Pending   bool
	ToolCalls []turn.ToolCall
	Records   []turn.Record
	History   []string
	Usage     llm.Usage
}

// Runner drives model/tool steps for persisted threads.
type Runner struct {
	provider    llm.Provider
	registry    *tools.Registry
	store       ThreadStore
	model       string
	system      string
	maxTokens   int
	maxSteps    int
	retry       llm.RetryPolicy
	autoApprove map[string]bool
	logger      *zap.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// New creates a runner with explicit dependencies.
func New(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, ErrProviderRequired
	}
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	registry := cfg.ToolRegistry
	if registry == nil {
		registry = tools.NewRegistry()
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auto := make(map[string]bool, len(cfg.AutoApprove))
	for _, name := range cfg.AutoApprove {
		if name = strings.TrimSpace(name); name != "" {
			auto[name] = true
		}
	}

	return &Runner{
		provider:    cfg.Provider,
		registry:    registry,
		store:       cfg.Store,
		model:       cfg.Model,
		system:      cfg.System,
		maxTokens:   maxTokens,
		maxSteps:    maxSteps,
		retry:       cfg.Retry,
		autoApprove: auto,
		logger:      logger,
		threads:     make(map[string]*sync.Mutex),
	}, nil
}

// Invoke applies input to a thread and steps the model until it either
// answers or proposes tool calls that need a decision.
func (r *Runner) Invoke(ctx context.Context, threadID string, in Input) (Result, error) {
	if err := validateInput(in); err != nil {
		return Result{}, err
	}
	threadID = strings.TrimSpace(threadID)

	unlock := r.lockThread(threadID)
	defer unlock()

	history, err := r.store.Load(ctx, threadID)
	if err != nil && !errors.Is(err, checkpoint.ErrThreadNotFound) {
		return Result{}, fmt.Errorf("load thread: %w", err)
	}
	state, pending := threadState(history)

	var (
		added   []llm.Message
		records []turn.Record
	)
	switch {
	case in.Message != nil:
		if state == StatePending {
			return Result{}, ErrThreadPending
		}
		added = append(added, llm.UserText(strings.TrimSpace(*in.Message)))
	case in.Action == turn.ActionApprove:
		if state != StatePending {
			return Result{}, ErrNothingPending
		}
		results, created, err := r.executeToolCalls(ctx, pending)
		if err != nil {
			return Result{}, err
		}
		added = append(added, results...)
		records = append(records, created...)
	case in.Action == turn.ActionReject:
		if state != StatePending {
			return Result{}, ErrNothingPending
		}
		for _, call := range pending {
			added = append(added, llm.ToolResultMessage(llm.ToolResult{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Content:    RejectedToolContent,
				IsError:    true,
			}))
		}
		added = append(added, llm.UserText(RejectionMessage))
	}

	if err := r.store.Append(ctx, threadID, added...); err != nil {
		return Result{}, fmt.Errorf("persist input: %w", err)
	}
	history = append(history, added...)

	r.logger.Debug("agent invoke",
		zap.String("thread", threadID),
		zap.String("state", string(state)),
		zap.String("action", string(in.Action)),
		zap.Int("messages", len(history)),
	)

	outcome, err := r.run(ctx, threadID, history)
	if err != nil {
		return Result{}, err
	}
	outcome.Records = append(records, outcome.Records...)
	return outcome, nil
}

// State reports whether a thread awaits a decision.
func (r *Runner) State(ctx context.Context, threadID string) (State, error) {
	history, err := r.store.Load(ctx, strings.TrimSpace(threadID))
	if errors.Is(err, checkpoint.ErrThreadNotFound) {
		return StateIdle, nil
	}
	if err != nil {
		return "", err
	}
	state, _ := threadState(history)
	return state, nil
}

func (r *Runner) lockThread(threadID string) func() {
	r.mu.Lock()
	lock, ok := r.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		r.threads[threadID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func validateInput(in Input) error {
	switch {
	case in.Message != nil && in.Action != "":
		return fmt.Errorf("%w: message and action are mutually exclusive", ErrInvalidInput)
	case in.Message == nil && in.Action == "":
		return fmt.Errorf("%w: one of message or action is required", ErrInvalidInput)
	case in.Message != nil && strings.TrimSpace(*in.Message) == "":
		return fmt.Errorf("%w: message is empty", ErrInvalidInput)
	case in.Action != "" && !in.Action.Valid():
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, in.Action)
	}
	return nil
}
