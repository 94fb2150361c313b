package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"agentdesk/internal/catalog"
)

// PortalModel lists catalog agents and tracks the highlighted entry.
type PortalModel struct {
	agents []catalog.Agent
	cursor int
}

// NewPortalModel loads the catalog in display order.
func NewPortalModel() PortalModel {
	return PortalModel{agents: catalog.Agents()}
}

// Selected returns the highlighted agent.
func (m PortalModel) Selected() (catalog.Agent, bool) {
	if len(m.agents) == 0 {
		return catalog.Agent{}, false
	}
	return m.agents[m.cursor], true
}

// Focus moves the cursor to the agent with id, if listed.
func (m *PortalModel) Focus(id string) {
	for i, agent := range m.agents {
		if agent.ID == id {
			m.cursor = i
			return
		}
	}
}

// HandleKey moves the cursor and reports whether the user chose an agent.
func (m *PortalModel) HandleKey(msg tea.KeyMsg) (chosen bool) {
	if len(m.agents) == 0 {
		return false
	}
	switch msg.Type {
	case tea.KeyUp:
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.agents) - 1
		}
	case tea.KeyDown, tea.KeyTab:
		m.cursor++
		if m.cursor >= len(m.agents) {
			m.cursor = 0
		}
	case tea.KeyEnter:
		return true
	}
	return false
}

// Render draws the agent list.
func (m PortalModel) Render(width int, theme Theme) string {
	if len(m.agents) == 0 {
		return renderPanel(width, theme.PanelStyle, "No agents available.")
	}
	lines := []string{
		theme.HeaderStyle.Render("Select an agent"),
		theme.MutedStyle.Render("Use ↑/↓ to navigate, Enter to open, Esc to return."),
		"",
	}
	for i, agent := range m.agents {
		prefix := "  "
		name := theme.Accent(agent.Color).Render(agent.Icon + " " + agent.Name)
		if i == m.cursor {
			prefix = "> "
			name = theme.SelectedStyle.Render(agent.Icon + " " + agent.Name)
		}
		lines = append(lines,
			prefix+name+"  "+theme.MutedStyle.Render("["+agent.Status+"]"),
			"    "+agent.Description,
		)
	}
	return renderPanel(width, theme.PanelStyle, strings.Join(lines, "\n"))
}
