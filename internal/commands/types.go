package commands

import (
	tea "github.com/charmbracelet/bubbletea"

	"agentdesk/internal/catalog"
	"agentdesk/internal/console"
)

// SessionView is the read-only session contract commands need.
type SessionView interface {
	Token() string
	Snapshot() console.Snapshot
}

// CommandEnv provides the hooks commands use to act on the running console.
type CommandEnv struct {
	Session    SessionView
	Agent      catalog.Agent
	BackendURL string

	// ToggleSheet flips the record sheet and reports whether it is now shown.
	ToggleSheet func() bool
	OpenPortal  func() tea.Cmd
	SwitchAgent func(agent catalog.Agent) tea.Cmd
	// ReloadRecords refetches the record sheet from the backend.
	ReloadRecords func() tea.Cmd

	AppendNotice func(text string)
	AppendError  func(errText string)
}
