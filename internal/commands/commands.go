package commands

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"agentdesk/internal/catalog"
)

// IsSlashCommand reports whether input should be handled locally.
func IsSlashCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExecuteSlashCommand parses and handles one slash command.
func ExecuteSlashCommand(content string, env CommandEnv) tea.Cmd {
	if env.Session == nil {
		appendError(env, "session is not initialized")
		return nil
	}

	parts := strings.Fields(strings.TrimSpace(content))
	if len(parts) == 0 {
		return nil
	}
	command := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	switch command {
	case "help":
		appendNotice(env, strings.Join([]string{
			"Slash commands:",
			"/help",
			"/session",
			"/sheet",
			"/records",
			"/agents [agent-id]",
		}, "\n"))
	case "session":
		snap := env.Session.Snapshot()
		pending := "none"
		if snap.Pending != nil {
			pending = snap.Pending.Name
		}
		appendNotice(env, fmt.Sprintf(
			"session=%s agent=%s backend=%s messages=%d records=%d pending=%s busy=%t",
			env.Session.Token(),
			env.Agent.ID,
			env.BackendURL,
			len(snap.Messages),
			len(snap.Records),
			pending,
			snap.Busy,
		))
	case "sheet":
		if env.ToggleSheet == nil {
			appendError(env, "record sheet is not available")
			return nil
		}
		if env.ToggleSheet() {
			appendNotice(env, "Record sheet shown.")
		} else {
			appendNotice(env, "Record sheet hidden.")
		}
	case "records":
		if env.ReloadRecords == nil {
			appendError(env, "record reload is not available")
			return nil
		}
		return env.ReloadRecords()
	case "agents":
		if len(args) == 0 {
			if env.OpenPortal == nil {
				appendNotice(env, listAgents(env.Agent.ID))
				return nil
			}
			return env.OpenPortal()
		}
		if len(args) != 1 {
			appendError(env, "usage: /agents [agent-id]")
			return nil
		}
		agent, ok := catalog.FindAgent(args[0])
		if !ok {
			appendError(env, "unknown agent: "+args[0]+"\n"+listAgents(env.Agent.ID))
			return nil
		}
		if env.SwitchAgent == nil {
			appendError(env, "agent switching is not available")
			return nil
		}
		return env.SwitchAgent(agent)
	default:
		appendError(env, "unknown slash command: /"+command)
	}

	return nil
}

func listAgents(currentID string) string {
	lines := []string{"Agents:"}
	for _, agent := range catalog.Agents() {
		marker := " "
		if agent.ID == currentID {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s (%s)", marker, agent.ID, agent.Name, agent.Status))
	}
	return strings.Join(lines, "\n")
}

func appendNotice(env CommandEnv, text string) {
	if env.AppendNotice != nil {
		env.AppendNotice(text)
	}
}

func appendError(env CommandEnv, errText string) {
	if env.AppendError != nil {
		env.AppendError(errText)
	}
}
