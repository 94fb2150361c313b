package tui

import (
	"strings"
)

// StatusModel renders the top status bar.
type StatusModel struct {
	Version    string
	AgentName  string
	BackendURL string
	Token      string
	State      string
}

// NewStatusModel constructs status data for rendering.
func NewStatusModel(version, backendURL string) StatusModel {
	return StatusModel{
		Version:    strings.TrimSpace(version),
		BackendURL: strings.TrimSpace(backendURL),
		State:      "idle",
	}
}

// SetState updates the runtime state token.
func (m *StatusModel) SetState(state string) {
	m.State = strings.TrimSpace(state)
	if m.State == "" {
		m.State = "idle"
	}
}

// Render draws a one-line status bar.
func (m StatusModel) Render(width int, theme Theme) string {
	parts := []string{
		"agentdesk " + fallbackText(m.Version, "dev"),
		fallbackText(m.AgentName, "portal"),
		fallbackText(m.BackendURL, "no-backend"),
		"session: " + shortToken(m.Token),
		"state: " + fallbackText(m.State, "idle"),
	}
	line := strings.Join(parts, " | ")
	style := theme.StatusBarStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(line)
}

// shortToken keeps session tokens readable in the status bar.
func shortToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return "none"
	}
	const keep = 16
	if len(token) <= keep {
		return token
	}
	return token[:keep] + "…"
}

func fallbackText(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
