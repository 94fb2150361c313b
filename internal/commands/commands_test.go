package commands

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"agentdesk/internal/catalog"
	"agentdesk/internal/console"
)

type fakeSession struct {
	token string
	snap  console.Snapshot
}

func (f *fakeSession) Token() string              { return f.token }
func (f *fakeSession) Snapshot() console.Snapshot { return f.snap }

type openPortalMsg struct{}

func TestIsSlashCommand(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"/help":         true,
		"  /session":    true,
		"hello":         false,
		"path /tmp":     false,
		"":              false,
		"Sapporo /help": false,
	}
	for input, want := range tests {
		if got := IsSlashCommand(input); got != want {
			t.Fatalf("IsSlashCommand(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestExecuteSlashCommandHelp(t *testing.T) {
	t.Parallel()

	var notices []string
	cmd := ExecuteSlashCommand("/help", CommandEnv{
		Session: &fakeSession{},
		AppendNotice: func(text string) {
			notices = append(notices, text)
		},
	})
	if cmd != nil {
		t.Fatalf("cmd = %v, want nil", cmd)
	}
	if len(notices) != 1 || !strings.Contains(notices[0], "/session") || !strings.Contains(notices[0], "/agents") {
		t.Fatalf("notices = %#v, want slash command list", notices)
	}
}

func TestExecuteSlashCommandSession(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		token: "session-abc",
		snap: console.Snapshot{
			Messages: make([]console.Message, 3),
			Pending:  &console.Invocation{Name: "create_investigation_report"},
			Records:  make([]console.DisplayRecord, 2),
		},
	}
	var notice string
	_ = ExecuteSlashCommand("/session", CommandEnv{
		Session:      session,
		Agent:        catalog.Agent{ID: "logistics"},
		BackendURL:   "http://localhost:8000",
		AppendNotice: func(text string) { notice = text },
	})

	for _, want := range []string{
		"session=session-abc",
		"agent=logistics",
		"backend=http://localhost:8000",
		"messages=3",
		"records=2",
		"pending=create_investigation_report",
	} {
		if !strings.Contains(notice, want) {
			t.Fatalf("notice = %q, want %q", notice, want)
		}
	}
}

func TestExecuteSlashCommandSheetToggles(t *testing.T) {
	t.Parallel()

	shown := true
	var notices []string
	env := CommandEnv{
		Session: &fakeSession{},
		ToggleSheet: func() bool {
			shown = !shown
			return shown
		},
		AppendNotice: func(text string) { notices = append(notices, text) },
	}

	_ = ExecuteSlashCommand("/sheet", env)
	_ = ExecuteSlashCommand("/sheet", env)
	if shown != true {
		t.Fatalf("shown = %v, want true after two toggles", shown)
	}
	if len(notices) != 2 || notices[0] != "Record sheet hidden." || notices[1] != "Record sheet shown." {
		t.Fatalf("notices = %#v", notices)
	}
}

func TestExecuteSlashCommandAgents(t *testing.T) {
	t.Parallel()

	t.Run("opens portal", func(t *testing.T) {
		cmd := ExecuteSlashCommand("/agents", CommandEnv{
			Session:    &fakeSession{},
			OpenPortal: func() tea.Cmd { return func() tea.Msg { return openPortalMsg{} } },
		})
		if cmd == nil {
			t.Fatalf("cmd = nil, want portal command")
		}
		if _, ok := cmd().(openPortalMsg); !ok {
			t.Fatalf("cmd() did not open the portal")
		}
	})

	t.Run("lists without portal", func(t *testing.T) {
		var notice string
		_ = ExecuteSlashCommand("/agents", CommandEnv{
			Session:      &fakeSession{},
			Agent:        catalog.Agent{ID: "inventory"},
			AppendNotice: func(text string) { notice = text },
		})
		if !strings.Contains(notice, "logistics") || !strings.Contains(notice, "* inventory") {
			t.Fatalf("notice = %q, want agent list marking inventory", notice)
		}
	})

	t.Run("switches by id", func(t *testing.T) {
		var switched catalog.Agent
		_ = ExecuteSlashCommand("/agents INVENTORY", CommandEnv{
			Session: &fakeSession{},
			SwitchAgent: func(agent catalog.Agent) tea.Cmd {
				switched = agent
				return nil
			},
		})
		if switched.ID != "inventory" {
			t.Fatalf("switched = %q, want inventory", switched.ID)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		var errText string
		_ = ExecuteSlashCommand("/agents billing", CommandEnv{
			Session:     &fakeSession{},
			AppendError: func(text string) { errText = text },
		})
		if !strings.Contains(errText, "unknown agent: billing") {
			t.Fatalf("errText = %q, want unknown agent", errText)
		}
	})
}

func TestExecuteSlashCommandUnknownReturnsError(t *testing.T) {
	t.Parallel()

	var errText string
	_ = ExecuteSlashCommand("/missing", CommandEnv{
		Session: &fakeSession{},
		AppendError: func(text string) {
			errText = text
		},
	})
	if !strings.Contains(errText, "unknown slash command") {
		t.Fatalf("errText = %q, want unknown slash command", errText)
	}
}

func TestExecuteSlashCommandWithoutSession(t *testing.T) {
	t.Parallel()

	var errText string
	_ = ExecuteSlashCommand("/help", CommandEnv{AppendError: func(text string) { errText = text }})
	if errText != "session is not initialized" {
		t.Fatalf("errText = %q", errText)
	}
}
