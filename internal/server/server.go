package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentdesk/internal/agent"
	"agentdesk/internal/checkpoint"
	"agentdesk/internal/ledger"
	"agentdesk/internal/turn"
)

const (
	maxRequestBodyBytes = 1 << 20
	readHeaderTimeout   = 10 * time.Second
	shutdownTimeout     = 3 * time.Second
)

var (
	ErrAgentRequired  = errors.New("agent is required")
	ErrLedgerRequired = errors.New("ledger is required")
)

// Invoker runs one turn against a conversation thread.
type Invoker interface {
	Invoke(ctx context.Context, threadID string, in agent.Input) (agent.Result, error)
	State(ctx context.Context, threadID string) (agent.State, error)
}

// SlipLister lists stored slips.
type SlipLister interface {
	List(ctx context.Context) ([]ledger.Slip, error)
}

// Config configures Server creation.
type Config struct {
	Agent  Invoker
	Ledger SlipLister
	Logger *zap.Logger
}

// Server exposes the agent runner over the turn protocol.
type Server struct {
	agent  Invoker
	ledger SlipLister
	logger *zap.Logger
}

// New creates a server with explicit dependencies.
func New(cfg Config) (*Server, error) {
	if cfg.Agent == nil {
		return nil, ErrAgentRequired
	}
	if cfg.Ledger == nil {
		return nil, ErrLedgerRequired
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{agent: cfg.Agent, ledger: cfg.Ledger, logger: logger}, nil
}

// Handler returns the routed HTTP handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /records", s.handleRecords)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.logRequests(withCORS(mux))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	err := httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req turn.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := agent.Input{Message: req.Message}
	if req.Action != nil {
		in.Action = *req.Action
	}
	threadID := strings.TrimSpace(req.SessionToken)
	result, err := s.invoke(r.Context(), threadID, in)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("chat turn failed", zap.String("session", threadID), zap.Error(err))
		} else {
			s.logger.Debug("chat turn refused", zap.String("session", threadID), zap.Int("status", status), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	toolCalls := result.ToolCalls
	if toolCalls == nil {
		toolCalls = []turn.ToolCall{}
	}
	writeJSON(w, http.StatusOK, turn.Response{
		Content:   turn.StringPtr(result.Content),
		IsPending: result.Pending,
		ToolCalls: toolCalls,
		Records:   result.Records,
		History:   result.History,
	})
}

// invoke refuses turns that do not fit the thread's state before handing
// them to the agent, so a conflicting request never reaches the model.
func (s *Server) invoke(ctx context.Context, threadID string, in agent.Input) (agent.Result, error) {
	state, err := s.agent.State(ctx, threadID)
	if err != nil {
		return agent.Result{}, fmt.Errorf("load thread state: %w", err)
	}
	switch {
	case in.Message != nil && state == agent.StatePending:
		return agent.Result{}, agent.ErrThreadPending
	case in.Action != "" && state == agent.StateIdle:
		return agent.Result{}, agent.ErrNothingPending
	}
	return s.agent.Invoke(ctx, threadID, in)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	slips, err := s.ledger.List(r.Context())
	if err != nil {
		s.logger.Error("list records failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := make([]turn.Record, 0, len(slips))
	for _, slip := range slips {
		records = append(records, turn.Record{
			ID:          slip.ID,
			Origin:      slip.Origin,
			Destination: slip.Destination,
			Status:      slip.Status,
			Note:        slip.Note,
		})
	}
	writeJSON(w, http.StatusOK, turn.RecordList{Records: records})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, agent.ErrInvalidInput),
		errors.Is(err, checkpoint.ErrInvalidThreadID),
		errors.Is(err, checkpoint.ErrThreadIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrThreadPending), errors.Is(err, agent.ErrNothingPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
