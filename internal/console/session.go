package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agentdesk/internal/turn"
)

// DefaultRequestTimeout bounds one round trip to the backend.
const DefaultRequestTimeout = 60 * time.Second

// Transport carries one turn to the backend.
type Transport interface {
	Send(ctx context.Context, req turn.Request) (turn.Response, error)
}

// Config configures a Session.
type Config struct {
	// Token identifies the conversation to the backend. NewToken is used when
	// empty.
	Token             string
	Transport         Transport
	Scheduler         Scheduler
	Now               func() time.Time
	RequestTimeout    time.Duration
	HighlightInterval time.Duration
	RecordRule        RecordRule
	// Greeting, when set, becomes the first assistant message.
	Greeting    string
	NewRecordID func(prefix string) string
	Logger      *zap.Logger
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return "session-" + uuid.NewString()
}

// Turn is one request in flight. It is created by BeginText or BeginDecision
// and consumed by Finish.
type Turn struct {
	session    *Session
	request    turn.Request
	decision   *turn.Action
	invocation *Invocation
}

// Request returns the wire request this turn sends.
func (t *Turn) Request() turn.Request {
	return t.request
}

// Decision returns the decision carried by this turn, if any.
func (t *Turn) Decision() (turn.Action, bool) {
	if t.decision == nil {
		return "", false
	}
	return *t.decision, true
}

// Outcome is the result of dispatching a turn.
type Outcome struct {
	Response turn.Response
	Err      error
}

// Snapshot is a point-in-time copy of the session for rendering.
type Snapshot struct {
	Token    string
	Messages []Message
	Pending  *Invocation
	Busy     bool
	Closed   bool
	Records  []DisplayRecord
}

// Session owns the timeline of one conversation and its approval gate.
// All methods are safe for concurrent use.
type Session struct {
	token        string
	transport    Transport
	scheduler    Scheduler
	now          func() time.Time
	timeout      time.Duration
	highlightFor time.Duration
	rule         RecordRule
	newRecordID  func(prefix string) string
	logger       *zap.Logger

	mu         sync.Mutex
	lastID     uint64
	messages   []Message
	gate       Gate
	busy       bool
	closed     bool
	inflight   *Turn
	records    []DisplayRecord
	highlights map[int]func()
}

// NewSession validates cfg and starts a session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Transport == nil {
		return nil, ErrTransportRequired
	}

	s := &Session{
		token:        strings.TrimSpace(cfg.Token),
		transport:    cfg.Transport,
		scheduler:    cfg.Scheduler,
		now:          cfg.Now,
		timeout:      cfg.RequestTimeout,
		highlightFor: cfg.HighlightInterval,
		rule:         cfg.RecordRule,
		newRecordID:  cfg.NewRecordID,
		logger:       cfg.Logger,
		highlights:   make(map[int]func()),
	}
	if s.token == "" {
		s.token = NewToken()
	}
	if s.scheduler == nil {
		s.scheduler = TimerScheduler{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	if s.highlightFor <= 0 {
		s.highlightFor = DefaultHighlightInterval
	}
	if s.newRecordID == nil {
		s.newRecordID = RandomRecordID
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session", s.token))

	if greeting := strings.TrimSpace(cfg.Greeting); greeting != "" {
		s.appendLocked(RoleAssistant, &greeting)
	}
	return s, nil
}

func (s *Session) Token() string {
	return s.token
}

// BeginText appends the user's message and marks the session busy. The
// returned turn must be passed to Dispatch and then Finish. text is stored
// and sent as typed; whitespace-only input is refused.
func (s *Session) BeginText(text string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return nil, ErrSessionClosed
	case strings.TrimSpace(text) == "":
		return nil, ErrEmptyInput
	case !s.gate.AcceptsInput():
		return nil, ErrAwaitingDecision
	case s.busy:
		return nil, ErrBusy
	}

	s.appendLocked(RoleUser, &text)
	t := &Turn{
		session: s,
		request: turn.TextRequest(s.token, text),
	}
	s.busy = true
	s.inflight = t
	s.logger.Debug("turn started", zap.String("kind", "text"))
	return t, nil
}

// BeginDecision resolves the pending invocation and marks the session busy.
// The invocation is cleared here, before the backend has answered.
func (s *Session) BeginDecision(approved bool) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.busy {
		return nil, ErrBusy
	}
	inv, err := s.gate.Resolve()
	if err != nil {
		return nil, err
	}

	action := turn.ActionReject
	if approved {
		action = turn.ActionApprove
	}
	t := &Turn{
		session:    s,
		request:    turn.DecisionRequest(s.token, action),
		decision:   &action,
		invocation: &inv,
	}
	s.busy = true
	s.inflight = t
	s.logger.Debug("turn started",
		zap.String("kind", "decision"),
		zap.String("action", string(action)),
		zap.String("tool", inv.Name),
	)
	return t, nil
}

// Dispatch performs the transport call for t. It does not touch session
// state and may run on any goroutine.
func (s *Session) Dispatch(ctx context.Context, t *Turn) Outcome {
	if t == nil {
		return Outcome{Err: &TransportError{Err: ErrStaleTurn}}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.transport.Send(ctx, t.request)
	if err != nil {
		return Outcome{Err: &TransportError{Err: err}}
	}
	return Outcome{Response: resp}
}

// Finish applies the outcome of t and clears the busy flag. A failed outcome
// becomes a system message and is returned. Turns that are not the one in
// flight are ignored with ErrStaleTurn.
func (s *Session) Finish(t *Turn, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == nil || t.session != s || s.inflight != t {
		return ErrStaleTurn
	}
	s.inflight = nil
	s.busy = false

	if s.closed {
		return ErrSessionClosed
	}

	if out.Err != nil {
		te := asTransportError(out.Err)
		text := te.FailureText()
		s.appendLocked(RoleSystem, &text)
		s.logger.Warn("turn failed", zap.Error(te.Err))
		return te
	}

	s.applyLocked(t, out.Response)
	return nil
}

// SubmitUserText runs a full text turn synchronously.
func (s *Session) SubmitUserText(ctx context.Context, text string) error {
	t, err := s.BeginText(text)
	if err != nil {
		return err
	}
	return s.Finish(t, s.Dispatch(ctx, t))
}

// SubmitDecision runs a full decision turn synchronously.
func (s *Session) SubmitDecision(ctx context.Context, approved bool) error {
	t, err := s.BeginDecision(approved)
	if err != nil {
		return err
	}
	return s.Finish(t, s.Dispatch(ctx, t))
}

// Notice appends a local system message. It is allowed while a decision is
// pending, but not while a turn is in flight.
func (s *Session) Notice(text string) error {
	trimmed := strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrSessionClosed
	case trimmed == "":
		return ErrEmptyInput
	case s.busy:
		return ErrBusy
	}
	s.appendLocked(RoleSystem, &trimmed)
	return nil
}

// SeedRecords adds existing backend rows to the sheet without highlighting.
func (s *Session) SeedRecords(records []turn.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	for _, r := range records {
		s.records = append(s.records, displayRecordFromTurn(r, false))
	}
	return nil
}

// Close cancels pending highlight tasks. Turns still in flight are dropped
// when they finish.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for idx, cancel := range s.highlights {
		cancel()
		delete(s.highlights, idx)
	}
	s.logger.Debug("session closed")
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Token:    s.token,
		Messages: append([]Message(nil), s.messages...),
		Busy:     s.busy,
		Closed:   s.closed,
		Records:  append([]DisplayRecord(nil), s.records...),
	}
	if inv, ok := s.gate.Pending(); ok {
		snap.Pending = &inv
	}
	return snap
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) GateState() GateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.State()
}

func (s *Session) applyLocked(t *Turn, resp turn.Response) {
	if resp.Content != nil {
		content := *resp.Content
		if strings.TrimSpace(content) != "" && !turn.IsConfirmPlaceholder(content) {
			s.appendLocked(RoleAssistant, &content)
		}
	}

	if call, ok := resp.PendingCall(); ok {
		if err := s.gate.Raise(Invocation{Name: call.Name, Arguments: call.Args}); err != nil {
			s.logger.Warn("pending action dropped", zap.String("tool", call.Name), zap.Error(err))
		}
	}

	if len(resp.Records) > 0 {
		for _, r := range resp.Records {
			s.addHighlightedLocked(displayRecordFromTurn(r, true))
		}
		return
	}

	action, decided := t.Decision()
	if !decided || action != turn.ActionApprove || resp.IsPending {
		return
	}
	if !s.rule.matches(s.lastUserTextLocked()) {
		return
	}
	record := displayRecordFromTurn(s.rule.Template, true)
	record.ID = s.newRecordID(s.rule.IDPrefix)
	s.addHighlightedLocked(record)
}

func (s *Session) addHighlightedLocked(record DisplayRecord) {
	idx := len(s.records)
	s.records = append(s.records, record)
	s.highlights[idx] = s.scheduler.Schedule(s.highlightFor, func() {
		s.clearHighlight(idx)
	})
	s.logger.Debug("record added", zap.String("record", record.ID))
}

func (s *Session) clearHighlight(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.highlights[idx]; !ok {
		return
	}
	delete(s.highlights, idx)
	if idx < len(s.records) {
		s.records[idx].IsNew = false
	}
}

func (s *Session) lastUserTextLocked() string {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleUser {
			return s.messages[i].Text()
		}
	}
	return ""
}

func (s *Session) appendLocked(role Role, content *string) {
	s.lastID++
	s.messages = append(s.messages, Message{
		ID:        s.lastID,
		Role:      role,
		Content:   content,
		Timestamp: s.now().Format(TimestampLayout),
	})
}

// IsInputError reports whether err is a precondition refusal rather than a
// turn failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrAwaitingDecision) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrNoPendingInvocation)
}
