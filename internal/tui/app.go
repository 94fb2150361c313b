package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"agentdesk/internal/catalog"
	"agentdesk/internal/commands"
	"agentdesk/internal/console"
	"agentdesk/internal/turn"
)

const (
	defaultAppWidth       = 100
	defaultSheetWidth     = 34
	minimumChatPanelWidth = 40
	minimumSheetVisible   = 24
	chatPrefixWidth       = 20
)

// RecordSource lists the records the backend already holds.
type RecordSource interface {
	Records(ctx context.Context) ([]turn.Record, error)
}

// AppConfig configures the root BubbleTea model.
type AppConfig struct {
	Version    string
	BackendURL string
	ThemeName  string
	ShowSheet  bool

	Transport console.Transport
	// Records seeds the sheet when a session starts. Optional.
	Records           RecordSource
	RequestTimeout    time.Duration
	HighlightInterval time.Duration

	// Agent opens a session with this agent directly. The portal is shown
	// when empty or unknown.
	Agent  string
	Logger *zap.Logger
}

type appMode int

const (
	modePortal appMode = iota
	modeChat
)

// turnDoneMsg carries a dispatched turn back to the update loop.
type turnDoneMsg struct {
	session *console.Session
	turn    *console.Turn
	outcome console.Outcome
}

type recordsLoadedMsg struct {
	session *console.Session
	records []turn.Record
	err     error
	// manual is set for /records so the result is reported in the chat.
	manual bool
}

// App is the root TUI model.
type App struct {
	theme     Theme
	showSheet bool

	transport         console.Transport
	records           RecordSource
	backendURL        string
	requestTimeout    time.Duration
	highlightInterval time.Duration
	logger            *zap.Logger

	width  int
	height int

	mode    appMode
	status  StatusModel
	chat    ChatModel
	input   InputModel
	sheet   SheetModel
	portal  PortalModel
	spinner spinner.Model

	agent     catalog.Agent
	session   *console.Session
	scheduler *tickScheduler
	flash     string
	initCmd   tea.Cmd
}

// NewApp constructs the root TUI model with defaults.
func NewApp(cfg AppConfig) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = console.DefaultRequestTimeout
	}

	model := &App{
		theme:             ResolveTheme(cfg.ThemeName),
		showSheet:         cfg.ShowSheet,
		transport:         cfg.Transport,
		records:           cfg.Records,
		backendURL:        strings.TrimSpace(cfg.BackendURL),
		requestTimeout:    timeout,
		highlightInterval: cfg.HighlightInterval,
		logger:            logger,
		width:             defaultAppWidth,
		mode:              modePortal,
		status:            NewStatusModel(cfg.Version, cfg.BackendURL),
		chat:              NewChatModel(0),
		input:             NewInputModel(">", "Type a message and press Enter"),
		portal:            NewPortalModel(),
		spinner:           spinner.New(spinner.WithSpinner(spinner.Dot)),
		scheduler:         newTickScheduler(),
	}

	if agent, ok := catalog.FindAgent(cfg.Agent); ok {
		model.initCmd = model.startSession(agent)
	}
	return model
}

// Init starts background commands if needed.
func (m *App) Init() tea.Cmd {
	cmd := m.initCmd
	m.initCmd = nil
	return cmd
}

// Close ends the active session and cancels its pending highlight tasks.
func (m *App) Close() {
	if m.session != nil {
		m.session.Close()
	}
}

// Session returns the active session, or nil in the portal before any agent
// was chosen.
func (m *App) Session() *console.Session {
	return m.session
}

// Update applies state changes from user input and runtime events.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.mode == modePortal {
			return m, m.handlePortalKey(msg)
		}
		return m, m.handleChatKey(msg)

	case turnDoneMsg:
		return m, m.finishTurn(msg)

	case recordsLoadedMsg:
		m.applyRecords(msg)
		return m, nil

	case highlightTickMsg:
		if m.scheduler.Fire(msg.id) {
			m.syncFromSession()
		}
		return m, nil

	case spinner.TickMsg:
		if m.session == nil || !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders status bar, body, optional approval card, and input line.
func (m *App) View() string {
	width := m.width
	if width <= 0 {
		width = defaultAppWidth
	}

	statusLine := m.status.Render(width, m.theme)
	if m.mode == modePortal {
		return strings.Join([]string{statusLine, m.portal.Render(width, m.theme)}, "\n")
	}

	var card string
	if m.session != nil {
		if snap := m.session.Snapshot(); snap.Pending != nil {
			card = renderApprovalCard(*snap.Pending, width, m.theme)
		}
	}
	inputLine := m.input.Render(width, m.theme)

	reserved := lipgloss.Height(statusLine) + lipgloss.Height(inputLine)
	if card != "" {
		reserved += lipgloss.Height(card)
	}
	if m.flash != "" {
		reserved++
	}

	parts := []string{statusLine, m.renderBody(width, reserved)}
	if card != "" {
		parts = append(parts, card)
	}
	if m.flash != "" {
		parts = append(parts, m.theme.MutedStyle.Render(m.flash))
	}
	parts = append(parts, inputLine)
	return strings.Join(parts, "\n")
}

func (m *App) handlePortalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "q":
		m.Close()
		return tea.Quit
	case msg.Type == tea.KeyEsc:
		if m.session != nil {
			m.mode = modeChat
		}
		return nil
	}

	if !m.portal.HandleKey(msg) {
		return nil
	}
	agent, ok := m.portal.Selected()
	if !ok {
		return nil
	}
	return m.startSession(agent)
}

func (m *App) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEsc {
		m.openPortal()
		return nil
	}
	if m.handleChatScrollKey(msg) {
		return nil
	}

	if m.input.Value() == "" && m.session != nil && m.session.GateState() == console.GateAwaitingDecision {
		switch msg.String() {
		case "y", "Y":
			return m.decide(true)
		case "n", "N":
			return m.decide(false)
		}
	}

	if submitted := m.input.HandleKey(msg); submitted {
		return m.handleInputSubmit(m.input.Value())
	}
	return nil
}

func (m *App) handleInputSubmit(content string) tea.Cmd {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	if m.session == nil {
		m.appendErrorMessage("session is not initialized")
		return nil
	}
	m.flash = ""

	if commands.IsSlashCommand(trimmed) {
		m.input.Clear()
		cmd := m.handleSlashCommand(trimmed)
		m.syncFromSession()
		return cmd
	}

	t, err := m.session.BeginText(content)
	if err != nil {
		if !console.IsInputError(err) {
			m.appendErrorMessage(err.Error())
		}
		return nil
	}
	m.input.Clear()
	return m.dispatch(t)
}

func (m *App) decide(approved bool) tea.Cmd {
	t, err := m.session.BeginDecision(approved)
	if err != nil {
		if !console.IsInputError(err) {
			m.appendErrorMessage(err.Error())
		}
		return nil
	}
	m.flash = ""
	return m.dispatch(t)
}

func (m *App) dispatch(t *console.Turn) tea.Cmd {
	session := m.session
	m.syncFromSession()
	run := func() tea.Msg {
		return turnDoneMsg{
			session: session,
			turn:    t,
			outcome: session.Dispatch(context.Background(), t),
		}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *App) finishTurn(msg turnDoneMsg) tea.Cmd {
	if msg.session != m.session {
		return nil
	}
	err := m.session.Finish(msg.turn, msg.outcome)
	m.syncFromSession()
	if err != nil {
		var te *console.TransportError
		if errors.As(err, &te) {
			m.status.SetState("error")
		}
		m.logger.Debug("turn finished with error", zap.Error(err))
	}
	return m.scheduler.Drain()
}

func (m *App) handleSlashCommand(content string) tea.Cmd {
	env := commands.CommandEnv{
		Agent:      m.agent,
		BackendURL: m.backendURL,
		ToggleSheet: func() bool {
			m.showSheet = !m.showSheet
			return m.showSheet
		},
		OpenPortal: func() tea.Cmd {
			m.openPortal()
			return nil
		},
		SwitchAgent: func(agent catalog.Agent) tea.Cmd {
			return m.startSession(agent)
		},
		ReloadRecords: func() tea.Cmd {
			return m.loadRecordsCmd(true)
		},
		AppendNotice: m.appendNotice,
		AppendError:  m.appendErrorMessage,
	}
	if m.session != nil {
		env.Session = m.session
	}
	return commands.ExecuteSlashCommand(content, env)
}

// startSession replaces the active session with a fresh one for agent.
func (m *App) startSession(agent catalog.Agent) tea.Cmd {
	if m.session != nil {
		m.session.Close()
	}
	m.session = nil
	m.flash = ""

	session, err := console.NewSession(console.Config{
		Transport:         m.transport,
		Scheduler:         m.scheduler,
		RequestTimeout:    m.requestTimeout,
		HighlightInterval: m.highlightInterval,
		Greeting:          agent.Greeting(),
		RecordRule: console.RecordRule{
			Trigger:  agent.RecordTrigger,
			Template: agent.RecordTemplate,
			IDPrefix: agent.RecordIDPrefix,
		},
		Logger: m.logger.With(zap.String("agent", agent.ID)),
	})
	if err != nil {
		m.mode = modePortal
		m.flash = "Error: " + err.Error()
		m.logger.Warn("start session", zap.String("agent", agent.ID), zap.Error(err))
		return nil
	}

	m.agent = agent
	m.session = session
	m.mode = modeChat
	m.portal.Focus(agent.ID)
	m.status.AgentName = agent.Name
	m.status.Token = session.Token()
	m.input.Clear()
	m.chat.Clear()
	m.syncFromSession()
	m.logger.Info("session started", zap.String("agent", agent.ID), zap.String("session", session.Token()))
	return m.loadRecordsCmd(false)
}

func (m *App) openPortal() {
	m.mode = modePortal
	if m.session == nil {
		m.status.SetState("idle")
	}
}

func (m *App) loadRecordsCmd(manual bool) tea.Cmd {
	if m.records == nil || m.session == nil {
		if manual {
			m.appendErrorMessage("record source is not configured")
		}
		return nil
	}
	session := m.session
	source := m.records
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := source.Records(ctx)
		return recordsLoadedMsg{session: session, records: records, err: err, manual: manual}
	}
}

func (m *App) applyRecords(msg recordsLoadedMsg) {
	if msg.session != m.session || m.session == nil {
		return
	}
	if msg.err != nil {
		m.logger.Warn("load records", zap.Error(msg.err))
		if msg.manual {
			m.appendErrorMessage("could not load records: " + msg.err.Error())
		}
		return
	}

	known := make(map[string]struct{})
	for _, record := range m.session.Snapshot().Records {
		known[record.ID] = struct{}{}
	}
	fresh := make([]turn.Record, 0, len(msg.records))
	for _, record := range msg.records {
		if _, ok := known[record.ID]; ok {
			continue
		}
		fresh = append(fresh, record)
	}
	if err := m.session.SeedRecords(fresh); err != nil {
		m.logger.Debug("seed records", zap.Error(err))
		return
	}
	if msg.manual {
		m.appendNotice(fmt.Sprintf("Loaded %d new record(s).", len(fresh)))
	}
	m.syncFromSession()
}

// appendNotice writes a system message to the timeline. When the session
// cannot take one, the text is shown as a transient line instead.
func (m *App) appendNotice(text string) {
	if m.session == nil {
		m.flash = text
		return
	}
	if err := m.session.Notice(text); err != nil {
		m.flash = text
		return
	}
	m.syncFromSession()
}

func (m *App) appendErrorMessage(errText string) {
	m.appendNotice("Error: " + strings.TrimSpace(errText))
	m.status.SetState("error")
}

func (m *App) syncFromSession() {
	if m.session == nil {
		return
	}
	snap := m.session.Snapshot()
	m.chat.Sync(snap.Messages)
	m.sheet.Sync(snap.Records)
	m.status.Token = snap.Token

	switch {
	case snap.Busy:
		m.status.SetState("thinking")
		m.input.SetPlaceholder("Waiting for " + m.agent.Name + "...")
	case snap.Pending != nil:
		m.status.SetState("awaiting decision")
		m.input.SetPlaceholder("Approve with y or reject with n")
	default:
		if m.status.State != "error" {
			m.status.SetState("idle")
		}
		m.input.SetPlaceholder("Type a message and press Enter")
	}
}

func (m *App) renderBody(width, reserved int) string {
	chatWidth := width
	sheetWidth := 0
	if m.showSheet {
		sheetWidth = defaultSheetWidth
		if width/3 < sheetWidth {
			sheetWidth = width / 3
		}
		if sheetWidth < minimumSheetVisible {
			sheetWidth = minimumSheetVisible
		}
		chatWidth = width - sheetWidth - 1
		if chatWidth < minimumChatPanelWidth {
			chatWidth = minimumChatPanelWidth
			sheetWidth = width - chatWidth - 1
		}
	}

	m.chat.SetViewportHeight(m.chatViewportHeight(reserved))
	wrap := chatWidth - m.theme.PanelStyle.GetHorizontalFrameSize() - chatPrefixWidth
	if wrap < 10 {
		wrap = 10
	}
	m.chat.SetWrapWidth(wrap)

	typing := ""
	if m.session != nil && m.session.Busy() {
		typing = m.spinner.View() + " " + m.agent.Name + " is typing..."
	}
	chatView := m.chat.Render(chatWidth, m.theme, typing)
	if sheetWidth <= 0 {
		return chatView
	}
	m.sheet.SetMaxRows(m.sheetRows(reserved))
	return lipgloss.JoinHorizontal(lipgloss.Top, chatView, m.sheet.Render(sheetWidth, m.theme))
}

func (m *App) handleChatScrollKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		m.chat.ScrollUp(1)
		return true
	case tea.KeyDown:
		m.chat.ScrollDown(1)
		return true
	case tea.KeyPgUp:
		m.chat.PageUp()
		return true
	case tea.KeyPgDown:
		m.chat.PageDown()
		return true
	case tea.KeyHome:
		m.chat.ScrollToTop()
		return true
	case tea.KeyEnd:
		m.chat.ScrollToBottom()
		return true
	default:
		return false
	}
}

func (m *App) chatViewportHeight(reserved int) int {
	if m.height <= 0 {
		return 0
	}
	bodyHeight := m.height - reserved
	if bodyHeight < 1 {
		return 1
	}
	contentHeight := bodyHeight - m.theme.PanelStyle.GetVerticalFrameSize()
	if contentHeight < 1 {
		return 1
	}
	return contentHeight
}

// sheetRows estimates how many records fit; each takes up to four lines.
func (m *App) sheetRows(reserved int) int {
	if m.height <= 0 {
		return 0
	}
	lines := m.height - reserved - m.theme.SheetStyle.GetVerticalFrameSize() - 1
	rows := lines / 4
	if rows < 1 {
		return 1
	}
	return rows
}
